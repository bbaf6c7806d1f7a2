package ocpp

import "encoding/json"

// Action names
const (
	MsgType_Authorize                     = "Authorize"
	MsgType_BootNotification              = "BootNotification"
	MsgType_ChangeAvailability            = "ChangeAvailability"
	MsgType_ChangeConfiguration           = "ChangeConfiguration"
	MsgType_ClearCache                    = "ClearCache"
	MsgType_ClearChargingProfile          = "ClearChargingProfile"
	MsgType_DataTransfer                  = "DataTransfer"
	MsgType_DiagnosticsStatusNotification = "DiagnosticsStatusNotification"
	MsgType_FirmwareStatusNotification    = "FirmwareStatusNotification"
	MsgType_GetConfiguration              = "GetConfiguration"
	MsgType_GetDiagnostics                = "GetDiagnostics"
	MsgType_Heartbeat                     = "Heartbeat"
	MsgType_MeterValues                   = "MeterValues"
	MsgType_RemoteStartTransaction        = "RemoteStartTransaction"
	MsgType_RemoteStopTransaction         = "RemoteStopTransaction"
	MsgType_Reset                         = "Reset"
	MsgType_StartTransaction              = "StartTransaction"
	MsgType_StatusNotification            = "StatusNotification"
	MsgType_StopTransaction               = "StopTransaction"
	MsgType_TriggerMessage                = "TriggerMessage"
	MsgType_UnlockConnector               = "UnlockConnector"
	MsgType_UpdateFirmware                = "UpdateFirmware"
)

const (
	BootStatus_Accepted = "Accepted"
	BootStatus_Pending  = "Pending"
	BootStatus_Rejected = "Rejected"
)

const (
	AuthStatus_Accepted     = "Accepted"
	AuthStatus_Blocked      = "Blocked"
	AuthStatus_Expired      = "Expired"
	AuthStatus_Invalid      = "Invalid"
	AuthStatus_ConcurrentTx = "ConcurrentTx"
)

const (
	DataTransferStatus_Accepted         = "Accepted"
	DataTransferStatus_Rejected         = "Rejected"
	DataTransferStatus_UnknownMessageId = "UnknownMessageId"
	DataTransferStatus_UnknownVendorId  = "UnknownVendorId"
)

const (
	Status_Available     = "Available"
	Status_Preparing     = "Preparing"
	Status_Charging      = "Charging"
	Status_SuspendedEvse = "SuspendedEVSE"
	Status_SuspendedEv   = "SuspendedEV"
	Status_Finishing     = "Finishing"
	Status_Reserved      = "Reserved"
	Status_Unavailable   = "Unavailable"
	Status_Faulted       = "Faulted"
)

// --- Shared types ---

// Fields tagged without omitempty are mandatory on the wire; decodePayload rejects a
// payload that omits one, even where the zero value would validate.

type IdTagInfo struct {
	ExpiryDate  *DateTime `json:"expiryDate,omitempty"`
	ParentIdTag string    `json:"parentIdTag,omitempty" validate:"omitempty,max=20"`
	Status      string    `json:"status" validate:"required,oneof=Accepted Blocked Expired Invalid ConcurrentTx"`
}

type SampledValue struct {
	Value     string `json:"value" validate:"required"`
	Context   string `json:"context,omitempty" validate:"omitempty,oneof=Interruption.Begin Interruption.End Sample.Clock Sample.Periodic Transaction.Begin Transaction.End Trigger Other"`
	Format    string `json:"format,omitempty" validate:"omitempty,oneof=Raw SignedData"`
	Measurand string `json:"measurand,omitempty" validate:"omitempty,max=50"`
	Phase     string `json:"phase,omitempty" validate:"omitempty,oneof=L1 L2 L3 N L1-N L2-N L3-N L1-L2 L2-L3 L3-L1"`
	Location  string `json:"location,omitempty" validate:"omitempty,oneof=Body Cable EV Inlet Outlet"`
	Unit      string `json:"unit,omitempty" validate:"omitempty,max=20"`
}

type MeterValue struct {
	Timestamp    *DateTime      `json:"timestamp" validate:"required"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,min=1,dive"`
}

type KeyValue struct {
	Key      string  `json:"key" validate:"required,max=50"`
	Readonly bool    `json:"readonly"`
	Value    *string `json:"value,omitempty" validate:"omitempty,max=500"`
}

// --- Charge point initiated ---

type OcppAuthorize struct {
	IdTag string `json:"idTag" validate:"required,max=20"`
}

type OcppAuthorizeResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo" validate:"required"`
}

type OcppBootNotification struct {
	ChargePointVendor       string `json:"chargePointVendor" validate:"required,max=20"`
	ChargePointModel        string `json:"chargePointModel" validate:"required,max=20"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty" validate:"omitempty,max=25"`
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty" validate:"omitempty,max=25"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty" validate:"omitempty,max=50"`
	Iccid                   string `json:"iccid,omitempty" validate:"omitempty,max=20"`
	Imsi                    string `json:"imsi,omitempty" validate:"omitempty,max=20"`
	MeterType               string `json:"meterType,omitempty" validate:"omitempty,max=25"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty" validate:"omitempty,max=25"`
}

type OcppBootNotificationResponse struct {
	Status      string    `json:"status" validate:"required,oneof=Accepted Pending Rejected"`
	CurrentTime *DateTime `json:"currentTime" validate:"required"`
	Interval    int       `json:"interval" validate:"gte=0"`
}

type OcppDataTransfer struct {
	VendorId  string `json:"vendorId" validate:"required,max=255"`
	MessageId string `json:"messageId,omitempty" validate:"omitempty,max=50"`
	Data      string `json:"data,omitempty"`
}

type OcppDataTransferResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected UnknownMessageId UnknownVendorId"`
	Data   string `json:"data,omitempty"`
}

type OcppDiagnosticsStatusNotification struct {
	Status string `json:"status" validate:"required,oneof=Idle Uploaded UploadFailed Uploading"`
}

type OcppDiagnosticsStatusNotificationResponse struct{}

type OcppFirmwareStatusNotification struct {
	Status string `json:"status" validate:"required,oneof=Downloaded DownloadFailed Downloading Idle InstallationFailed Installing Installed"`
}

type OcppFirmwareStatusNotificationResponse struct{}

type OcppHeartbeat struct{}

type OcppHeartbeatResponse struct {
	CurrentTime *DateTime `json:"currentTime" validate:"required"`
}

type OcppMeterValues struct {
	ConnectorId   int          `json:"connectorId" validate:"gte=0"`
	TransactionId *int         `json:"transactionId,omitempty"`
	MeterValue    []MeterValue `json:"meterValue" validate:"required,min=1,dive"`
}

type OcppMeterValuesResponse struct{}

type OcppStartTransaction struct {
	ConnectorId   int       `json:"connectorId" validate:"gt=0"`
	IdTag         string    `json:"idTag" validate:"required,max=20"`
	MeterStart    int       `json:"meterStart"`
	ReservationId *int      `json:"reservationId,omitempty"`
	Timestamp     *DateTime `json:"timestamp" validate:"required"`
}

type OcppStartTransactionResponse struct {
	IdTagInfo     *IdTagInfo `json:"idTagInfo" validate:"required"`
	TransactionId int        `json:"transactionId"`
}

type OcppStatusNotification struct {
	ConnectorId     int       `json:"connectorId" validate:"gte=0"`
	ErrorCode       string    `json:"errorCode" validate:"required,oneof=ConnectorLockFailure EVCommunicationError GroundFailure HighTemperature InternalError LocalListConflict NoError OtherError OverCurrentFailure PowerMeterFailure PowerSwitchFailure ReaderFailure ResetFailure UnderVoltage OverVoltage WeakSignal"`
	Info            string    `json:"info,omitempty" validate:"omitempty,max=50"`
	Status          string    `json:"status" validate:"required,oneof=Available Preparing Charging SuspendedEVSE SuspendedEV Finishing Reserved Unavailable Faulted"`
	Timestamp       *DateTime `json:"timestamp,omitempty"`
	VendorId        string    `json:"vendorId,omitempty" validate:"omitempty,max=255"`
	VendorErrorCode string    `json:"vendorErrorCode,omitempty" validate:"omitempty,max=50"`
}

type OcppStatusNotificationResponse struct{}

type OcppStopTransaction struct {
	IdTag           string       `json:"idTag,omitempty" validate:"omitempty,max=20"`
	MeterStop       int          `json:"meterStop"`
	Timestamp       *DateTime    `json:"timestamp" validate:"required"`
	TransactionId   int          `json:"transactionId"`
	Reason          string       `json:"reason,omitempty" validate:"omitempty,oneof=EmergencyStop EVDisconnected HardReset Local Other PowerLoss Reboot Remote SoftReset UnlockCommand DeAuthorized"`
	TransactionData []MeterValue `json:"transactionData,omitempty" validate:"omitempty,dive"`
}

type OcppStopTransactionResponse struct {
	IdTagInfo *IdTagInfo `json:"idTagInfo,omitempty"`
}

// --- Central system initiated ---

type OcppChangeAvailability struct {
	ConnectorId int    `json:"connectorId" validate:"gte=0"`
	Type        string `json:"type" validate:"required,oneof=Inoperative Operative"`
}

type OcppChangeAvailabilityResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected Scheduled"`
}

type OcppChangeConfiguration struct {
	Key   string `json:"key" validate:"required,max=50"`
	Value string `json:"value" validate:"required,max=500"`
}

type OcppChangeConfigurationResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected RebootRequired NotSupported"`
}

type OcppClearCache struct{}

type OcppClearCacheResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected"`
}

type OcppClearChargingProfile struct {
	Id                     *int   `json:"id,omitempty"`
	ConnectorId            *int   `json:"connectorId,omitempty"`
	ChargingProfilePurpose string `json:"chargingProfilePurpose,omitempty" validate:"omitempty,oneof=ChargePointMaxProfile TxDefaultProfile TxProfile"`
	StackLevel             *int   `json:"stackLevel,omitempty"`
}

type OcppClearChargingProfileResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Unknown"`
}

type OcppGetConfiguration struct {
	Key []string `json:"key,omitempty" validate:"omitempty,dive,max=50"`
}

type OcppGetConfigurationResponse struct {
	ConfigurationKey []KeyValue `json:"configurationKey,omitempty" validate:"omitempty,dive"`
	UnknownKey       []string   `json:"unknownKey,omitempty" validate:"omitempty,dive,max=50"`
}

type OcppGetDiagnostics struct {
	Location      string    `json:"location" validate:"required"`
	Retries       *int      `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetryInterval *int      `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
	StartTime     *DateTime `json:"startTime,omitempty"`
	StopTime      *DateTime `json:"stopTime,omitempty"`
}

type OcppGetDiagnosticsResponse struct {
	FileName string `json:"fileName,omitempty" validate:"omitempty,max=255"`
}

type OcppRemoteStartTransaction struct {
	ConnectorId     *int            `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
	IdTag           string          `json:"idTag" validate:"required,max=20"`
	ChargingProfile json.RawMessage `json:"chargingProfile,omitempty"`
}

type OcppRemoteStartTransactionResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected"`
}

type OcppRemoteStopTransaction struct {
	TransactionId int `json:"transactionId"`
}

type OcppRemoteStopTransactionResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected"`
}

type OcppReset struct {
	Type string `json:"type" validate:"required,oneof=Hard Soft"`
}

type OcppResetResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected"`
}

type OcppTriggerMessage struct {
	RequestedMessage string `json:"requestedMessage" validate:"required,oneof=BootNotification DiagnosticsStatusNotification FirmwareStatusNotification Heartbeat MeterValues StatusNotification"`
	ConnectorId      *int   `json:"connectorId,omitempty" validate:"omitempty,gt=0"`
}

type OcppTriggerMessageResponse struct {
	Status string `json:"status" validate:"required,oneof=Accepted Rejected NotImplemented"`
}

type OcppUnlockConnector struct {
	ConnectorId int `json:"connectorId" validate:"gt=0"`
}

type OcppUnlockConnectorResponse struct {
	Status string `json:"status" validate:"required,oneof=Unlocked UnlockFailed NotSupported"`
}

type OcppUpdateFirmware struct {
	Location      string    `json:"location" validate:"required"`
	Retries       *int      `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetrieveDate  *DateTime `json:"retrieveDate" validate:"required"`
	RetryInterval *int      `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
}

type OcppUpdateFirmwareResponse struct{}

func (OcppAuthorize) Action() string                             { return MsgType_Authorize }
func (OcppAuthorizeResponse) Action() string                     { return MsgType_Authorize }
func (OcppBootNotification) Action() string                      { return MsgType_BootNotification }
func (OcppBootNotificationResponse) Action() string              { return MsgType_BootNotification }
func (OcppDataTransfer) Action() string                          { return MsgType_DataTransfer }
func (OcppDataTransferResponse) Action() string                  { return MsgType_DataTransfer }
func (OcppDiagnosticsStatusNotification) Action() string         { return MsgType_DiagnosticsStatusNotification }
func (OcppDiagnosticsStatusNotificationResponse) Action() string { return MsgType_DiagnosticsStatusNotification }
func (OcppFirmwareStatusNotification) Action() string            { return MsgType_FirmwareStatusNotification }
func (OcppFirmwareStatusNotificationResponse) Action() string    { return MsgType_FirmwareStatusNotification }
func (OcppHeartbeat) Action() string                             { return MsgType_Heartbeat }
func (OcppHeartbeatResponse) Action() string                     { return MsgType_Heartbeat }
func (OcppMeterValues) Action() string                           { return MsgType_MeterValues }
func (OcppMeterValuesResponse) Action() string                   { return MsgType_MeterValues }
func (OcppStartTransaction) Action() string                      { return MsgType_StartTransaction }
func (OcppStartTransactionResponse) Action() string              { return MsgType_StartTransaction }
func (OcppStatusNotification) Action() string                    { return MsgType_StatusNotification }
func (OcppStatusNotificationResponse) Action() string            { return MsgType_StatusNotification }
func (OcppStopTransaction) Action() string                       { return MsgType_StopTransaction }
func (OcppStopTransactionResponse) Action() string               { return MsgType_StopTransaction }
func (OcppChangeAvailability) Action() string                    { return MsgType_ChangeAvailability }
func (OcppChangeAvailabilityResponse) Action() string            { return MsgType_ChangeAvailability }
func (OcppChangeConfiguration) Action() string                   { return MsgType_ChangeConfiguration }
func (OcppChangeConfigurationResponse) Action() string           { return MsgType_ChangeConfiguration }
func (OcppClearCache) Action() string                            { return MsgType_ClearCache }
func (OcppClearCacheResponse) Action() string                    { return MsgType_ClearCache }
func (OcppClearChargingProfile) Action() string                  { return MsgType_ClearChargingProfile }
func (OcppClearChargingProfileResponse) Action() string          { return MsgType_ClearChargingProfile }
func (OcppGetConfiguration) Action() string                      { return MsgType_GetConfiguration }
func (OcppGetConfigurationResponse) Action() string              { return MsgType_GetConfiguration }
func (OcppGetDiagnostics) Action() string                        { return MsgType_GetDiagnostics }
func (OcppGetDiagnosticsResponse) Action() string                { return MsgType_GetDiagnostics }
func (OcppRemoteStartTransaction) Action() string                { return MsgType_RemoteStartTransaction }
func (OcppRemoteStartTransactionResponse) Action() string        { return MsgType_RemoteStartTransaction }
func (OcppRemoteStopTransaction) Action() string                 { return MsgType_RemoteStopTransaction }
func (OcppRemoteStopTransactionResponse) Action() string         { return MsgType_RemoteStopTransaction }
func (OcppReset) Action() string                                 { return MsgType_Reset }
func (OcppResetResponse) Action() string                         { return MsgType_Reset }
func (OcppTriggerMessage) Action() string                        { return MsgType_TriggerMessage }
func (OcppTriggerMessageResponse) Action() string                { return MsgType_TriggerMessage }
func (OcppUnlockConnector) Action() string                       { return MsgType_UnlockConnector }
func (OcppUnlockConnectorResponse) Action() string               { return MsgType_UnlockConnector }
func (OcppUpdateFirmware) Action() string                        { return MsgType_UpdateFirmware }
func (OcppUpdateFirmwareResponse) Action() string                { return MsgType_UpdateFirmware }
