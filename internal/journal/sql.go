package journal

import (
	"context"

	"sw/ocpp/central/internal/db"

	"github.com/juju/errors"
)

// SqlStore writes entries into the messages table.
type SqlStore struct {
	db *db.DB
}

func NewSqlStore(conn *db.DB) *SqlStore {
	return &SqlStore{db: conn}
}

func (s *SqlStore) Add(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		"INSERT INTO messages(chargePointId,serverNode,direction,messageTypeId,uniqueId,action,body,messageTime) VALUES (?,?,?,?,?,?,?,?)"),
		entry.ChargePointId, entry.ServerNode, entry.Direction, entry.MessageTypeId, entry.UniqueId, entry.Action, entry.Body, entry.Time.UnixMilli(),
	)
	if db.IsUniqueViolation(err) {
		return errors.AlreadyExistsf("message %s %s of %s", entry.Direction, entry.UniqueId, entry.ChargePointId)
	}
	return errors.Annotate(err, "inserting message")
}

// Count returns how many entries are stored for chargePointId.
func (s *SqlStore) Count(ctx context.Context, chargePointId string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT COUNT(*) FROM messages WHERE chargePointId = ?"), chargePointId).Scan(&n)
	return n, errors.Trace(err)
}
