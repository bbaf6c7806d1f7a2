// Provides cache interaction functions
package cache

import (
	log "sw/ocpp/central/internal/logging"

	"github.com/go-redis/redis"
)

// ConnectRedis opens the redis client used for charge point auth records.
func ConnectRedis(hostIp string, password string, dbId int) (*redis.Client, error) {
	log.Logger.Info("Connect to redis: ", hostIp)

	client := redis.NewClient(&redis.Options{
		Addr:     hostIp,
		Password: password,
		DB:       dbId,
	})

	if _, err := client.Ping().Result(); err != nil {
		log.Logger.Error("Error in redis connection: ", err.Error())
		client.Close()
		return nil, err
	}
	log.Logger.Info("Connected to redis...")
	return client, nil
}
