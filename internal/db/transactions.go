package db

import (
	"context"
	"database/sql"
	"time"

	"sw/ocpp/central/internal/handler"

	"github.com/google/uuid"
	"github.com/juju/errors"
)

// SqlTransactions stores transactions in the transactions table.
type SqlTransactions struct {
	db *DB
}

func NewSqlTransactions(db *DB) *SqlTransactions {
	return &SqlTransactions{db: db}
}

func (s *SqlTransactions) StartTransaction(ctx context.Context, tx handler.Transaction) (int, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		"INSERT INTO transactions(guid,chargePointId,connectorId,idTag,meterStart,timeStarted) VALUES (?,?,?,?,?,?) RETURNING id"),
		uuid.New().String(), tx.ChargePointId, tx.ConnectorId, tx.IdTag, tx.MeterStart, tx.StartedAt.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return 0, errors.Annotatef(err, "inserting transaction for %s", tx.ChargePointId)
	}
	return int(id), nil
}

func (s *SqlTransactions) StopTransaction(ctx context.Context, chargePointId string, transactionId int, meterStop int, stoppedAt time.Time, reason string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE transactions SET meterStop = ?, timeEnded = ?, stopReason = ? WHERE id = ? AND chargePointId = ?"),
		meterStop, stoppedAt.UnixMilli(), reason, transactionId, chargePointId,
	)
	if err != nil {
		return errors.Annotatef(err, "updating transaction %d", transactionId)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Trace(err)
	}
	if n == 0 {
		return errors.NotFoundf("transaction %d of %s", transactionId, chargePointId)
	}
	return nil
}

// Get reads a transaction back.
func (s *SqlTransactions) Get(ctx context.Context, transactionId int) (handler.Transaction, error) {
	var (
		tx          handler.Transaction
		timeStarted int64
		meterStop   *int64
		timeEnded   *int64
		stopReason  *string
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		"SELECT id,chargePointId,connectorId,idTag,meterStart,timeStarted,meterStop,timeEnded,stopReason FROM transactions WHERE id = ?"),
		transactionId,
	).Scan(&tx.Id, &tx.ChargePointId, &tx.ConnectorId, &tx.IdTag, &tx.MeterStart, &timeStarted, &meterStop, &timeEnded, &stopReason)
	if errors.Is(err, sql.ErrNoRows) {
		return tx, errors.NotFoundf("transaction %d", transactionId)
	}
	if err != nil {
		return tx, errors.Trace(err)
	}
	tx.StartedAt = time.UnixMilli(timeStarted).UTC()
	if meterStop != nil {
		v := int(*meterStop)
		tx.MeterStop = &v
	}
	if timeEnded != nil {
		t := time.UnixMilli(*timeEnded).UTC()
		tx.StoppedAt = &t
	}
	if stopReason != nil {
		tx.StopReason = *stopReason
	}
	return tx, nil
}
