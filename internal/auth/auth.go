// Package auth decides which charge points may open a session.
package auth

import (
	log "sw/ocpp/central/internal/logging"

	"github.com/go-redis/redis"
	"github.com/juju/errors"
	"golang.org/x/crypto/bcrypt"
)

const ErrDenied = errors.ConstError("authentication denied")

// PrefixCpAuth prefixes the redis key holding a charge point's auth record.
const PrefixCpAuth string = "CP_"

// Authenticator is consulted once per connection, before a session exists. Both
// methods return nil, ErrDenied, or an error from the backing store.
type Authenticator interface {
	Authenticate(chargePointId string) error
	AuthenticateWithKey(chargePointId string, key string) error
}

// AllowAll accepts every charge point.
type AllowAll struct{}

func (AllowAll) Authenticate(string) error                { return nil }
func (AllowAll) AuthenticateWithKey(string, string) error { return nil }

// Getter is the part of *redis.Client used for lookups.
type Getter interface {
	Get(key string) *redis.StringCmd
}

// RedisAuthenticator accepts charge points that have a CP_<id> record. The record
// holds the bcrypt hash of the charge point's basic auth key.
type RedisAuthenticator struct {
	cache Getter
}

func NewRedisAuthenticator(cache Getter) *RedisAuthenticator {
	return &RedisAuthenticator{cache: cache}
}

func (a *RedisAuthenticator) Authenticate(chargePointId string) error {
	_, err := a.record(chargePointId)
	return err
}

func (a *RedisAuthenticator) AuthenticateWithKey(chargePointId string, key string) error {
	hash, err := a.record(chargePointId)
	if err != nil {
		return err
	}
	if hash == "" {
		log.Logger.Warn("No auth key stored for: ", chargePointId)
		return ErrDenied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrDenied
		}
		return errors.Annotatef(err, "checking key of %s", chargePointId)
	}
	return nil
}

func (a *RedisAuthenticator) record(chargePointId string) (string, error) {
	key := PrefixCpAuth + chargePointId

	response := a.cache.Get(key)
	if response.Err() == redis.Nil {
		log.Logger.Warn("Not found: ", key)
		return "", ErrDenied
	}
	if response.Err() != nil {
		log.Logger.Error("Cache error: ", response.Err())
		return "", errors.Annotatef(response.Err(), "reading %s", key)
	}
	return response.Val(), nil
}
