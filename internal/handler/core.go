// Package handler answers the Calls charge points send to the central system.
package handler

import (
	"context"
	"fmt"

	"sw/ocpp/central/internal/helpers"
	log "sw/ocpp/central/internal/logging"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/session"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

const DefaultHeartbeatInterval = 60

// CoreHandler implements the central system side of the Core, Firmware Management
// and Diagnostics profiles.
type CoreHandler struct {
	heartbeatInterval int
	transactions      Transactions
}

// NewCoreHandler returns a handler telling charge points to send a heartbeat every
// heartbeatInterval seconds. A nil transactions keeps them in memory.
func NewCoreHandler(heartbeatInterval int, transactions Transactions) *CoreHandler {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	if transactions == nil {
		transactions = NewMemoryTransactions()
	}
	return &CoreHandler{heartbeatInterval: heartbeatInterval, transactions: transactions}
}

func (h *CoreHandler) HandleCall(ctx context.Context, s *session.Session, call *ocpp.IncomingCall) (ocpp.Response, error) {
	logger := log.Logger.WithFields(logrus.Fields{"chargePointId": s.ChargePointId(), "uniqueId": call.UniqueId})
	logger.Debugf("Received %s", call.ActionName)

	switch request := call.Payload.(type) {
	case *ocpp.OcppBootNotification:
		logger.Infof("Boot from %s %s, firmware %q", request.ChargePointVendor, request.ChargePointModel, request.FirmwareVersion)
		return &ocpp.OcppBootNotificationResponse{
			Status:      ocpp.BootStatus_Accepted,
			CurrentTime: ocpp.NewDateTime(helpers.Now()),
			Interval:    h.heartbeatInterval,
		}, nil

	case *ocpp.OcppHeartbeat:
		return &ocpp.OcppHeartbeatResponse{CurrentTime: ocpp.NewDateTime(helpers.Now())}, nil

	case *ocpp.OcppAuthorize:
		return &ocpp.OcppAuthorizeResponse{IdTagInfo: accepted()}, nil

	case *ocpp.OcppStartTransaction:
		transactionId, err := h.transactions.StartTransaction(ctx, Transaction{
			ChargePointId: s.ChargePointId(),
			ConnectorId:   request.ConnectorId,
			IdTag:         request.IdTag,
			MeterStart:    request.MeterStart,
			StartedAt:     request.Timestamp.Time,
		})
		if err != nil {
			logger.Errorf("Cannot start transaction: %s", err)
			return nil, ocpp.NewError(ocpp.InternalError, call.UniqueId, "transaction store unavailable")
		}
		logger.Infof("Transaction %d started on connector %d", transactionId, request.ConnectorId)
		return &ocpp.OcppStartTransactionResponse{IdTagInfo: accepted(), TransactionId: transactionId}, nil

	case *ocpp.OcppStopTransaction:
		err := h.transactions.StopTransaction(ctx, s.ChargePointId(), request.TransactionId, request.MeterStop, request.Timestamp.Time, request.Reason)
		switch {
		case errors.Is(err, errors.NotFound):
			// The charge point has already ended the transaction, so it is acknowledged anyway.
			logger.Warnf("Stop of unknown transaction: %s", err)
		case err != nil:
			logger.Errorf("Cannot stop transaction %d: %s", request.TransactionId, err)
			return nil, ocpp.NewError(ocpp.InternalError, call.UniqueId, "transaction store unavailable")
		default:
			logger.Infof("Transaction %d stopped, meter %d", request.TransactionId, request.MeterStop)
		}
		response := &ocpp.OcppStopTransactionResponse{}
		if request.IdTag != "" {
			response.IdTagInfo = accepted()
		}
		return response, nil

	case *ocpp.OcppStatusNotification:
		logger.Infof("Connector %d is %s (%s)", request.ConnectorId, request.Status, request.ErrorCode)
		return &ocpp.OcppStatusNotificationResponse{}, nil

	case *ocpp.OcppMeterValues:
		return &ocpp.OcppMeterValuesResponse{}, nil

	case *ocpp.OcppDiagnosticsStatusNotification:
		return &ocpp.OcppDiagnosticsStatusNotificationResponse{}, nil

	case *ocpp.OcppFirmwareStatusNotification:
		return &ocpp.OcppFirmwareStatusNotificationResponse{}, nil

	case *ocpp.OcppDataTransfer:
		return &ocpp.OcppDataTransferResponse{Status: ocpp.DataTransferStatus_UnknownVendorId}, nil
	}
	return nil, ocpp.NewError(ocpp.NotSupported, call.UniqueId, fmt.Sprintf("action '%s' is not handled", call.ActionName))
}

func accepted() *ocpp.IdTagInfo {
	return &ocpp.IdTagInfo{Status: ocpp.AuthStatus_Accepted}
}
