package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	log "sw/ocpp/central/internal/logging"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/juju/errors"
)

// Reference: https://pkg.go.dev/github.com/Azure/azure-sdk-for-go/sdk/data/aztables#section-readme

// TableMessageEntity is a stored frame. The partition is the charge point.
type TableMessageEntity struct {
	aztables.Entity
	ServerNode    string `json:"serverNode"`
	Direction     string `json:"direction"`
	MessageTypeId int    `json:"messageTypeId"`
	UniqueId      string `json:"uniqueId"`
	Action        string `json:"action"`
	MessageTime   string `json:"messageTime"`
	Body          string `json:"body"`
}

// EntityClient is the part of *aztables.Client the store uses.
type EntityClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
}

// TableStore writes entries to Azure Table storage.
type TableStore struct {
	client EntityClient
}

func NewTableStore(client EntityClient) *TableStore {
	return &TableStore{client: client}
}

func GetTableClient(tableName string, accountName string, accountKey string) (*aztables.Client, error) {
	cred, err := aztables.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, errors.Annotate(err, "table credential")
	}
	serviceURL := fmt.Sprintf("https://%s.table.core.windows.net/%s", accountName, tableName)

	client, err := aztables.NewClientWithSharedKey(serviceURL, cred, nil)
	if err != nil {
		return nil, errors.Annotatef(err, "table client for %s", tableName)
	}
	return client, nil
}

// CreateTable creates the table of client unless it exists. Needs the Storage Table
// Data Contributor role.
func CreateTable(ctx context.Context, client *aztables.Client) error {
	_, err := client.CreateTable(ctx, nil)
	if isConflict(err) {
		return nil
	}
	return errors.Annotate(err, "creating table")
}

func isConflict(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict
}

// Row keys may not contain these characters.
var rowKeyReplacer = strings.NewReplacer("/", "_", "\\", "_", "#", "_", "?", "_")

// RowKey orders entries of a charge point by time. Direction and uniqueId keep a
// Call and its result apart.
func RowKey(entry Entry) string {
	return rowKeyReplacer.Replace(fmt.Sprintf("%013d_%s_%d_%s", entry.Time.UnixMilli(), entry.Direction, entry.MessageTypeId, entry.UniqueId))
}

func (s *TableStore) Add(ctx context.Context, entry Entry) error {
	entity := TableMessageEntity{
		Entity: aztables.Entity{
			PartitionKey: entry.ChargePointId,
			RowKey:       RowKey(entry),
			Timestamp:    aztables.EDMDateTime(entry.Time),
		},
		ServerNode:    entry.ServerNode,
		Direction:     entry.Direction,
		MessageTypeId: entry.MessageTypeId,
		UniqueId:      entry.UniqueId,
		Action:        entry.Action,
		MessageTime:   entry.Time.Format("2006-01-02T15:04:05.000Z"),
		Body:          entry.Body,
	}
	marshalled, err := json.Marshal(entity)
	if err != nil {
		return errors.Trace(err)
	}

	log.Logger.Debugf("Add message partitionKey/rowKey: %s %s", entity.PartitionKey, entity.RowKey)
	_, err = s.client.AddEntity(ctx, marshalled, nil)
	if isConflict(err) {
		return errors.AlreadyExistsf("message %s", entity.RowKey)
	}
	return errors.Annotate(err, "adding message entity")
}
