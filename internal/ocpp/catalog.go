package ocpp

import "sort"

// Feature ties an action name to the payload types of its request and response.
type Feature struct {
	Action      string
	NewRequest  func() Request
	NewResponse func() Response
}

// Catalog resolves action names to payload schemas. It is built once and read concurrently.
type Catalog struct {
	features map[string]Feature
}

func NewCatalog(features ...Feature) *Catalog {
	c := &Catalog{features: make(map[string]Feature, len(features))}
	for _, f := range features {
		c.features[f.Action] = f
	}
	return c
}

func (c *Catalog) Feature(action string) (Feature, bool) {
	f, ok := c.features[action]
	return f, ok
}

func (c *Catalog) Actions() []string {
	actions := make([]string, 0, len(c.features))
	for action := range c.features {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// DefaultCatalog covers the OCPP 1.6 Core, Firmware Management and Remote Trigger
// profiles plus ClearChargingProfile.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Feature{MsgType_Authorize, func() Request { return &OcppAuthorize{} }, func() Response { return &OcppAuthorizeResponse{} }},
		Feature{MsgType_BootNotification, func() Request { return &OcppBootNotification{} }, func() Response { return &OcppBootNotificationResponse{} }},
		Feature{MsgType_DataTransfer, func() Request { return &OcppDataTransfer{} }, func() Response { return &OcppDataTransferResponse{} }},
		Feature{MsgType_DiagnosticsStatusNotification, func() Request { return &OcppDiagnosticsStatusNotification{} }, func() Response { return &OcppDiagnosticsStatusNotificationResponse{} }},
		Feature{MsgType_FirmwareStatusNotification, func() Request { return &OcppFirmwareStatusNotification{} }, func() Response { return &OcppFirmwareStatusNotificationResponse{} }},
		Feature{MsgType_Heartbeat, func() Request { return &OcppHeartbeat{} }, func() Response { return &OcppHeartbeatResponse{} }},
		Feature{MsgType_MeterValues, func() Request { return &OcppMeterValues{} }, func() Response { return &OcppMeterValuesResponse{} }},
		Feature{MsgType_StartTransaction, func() Request { return &OcppStartTransaction{} }, func() Response { return &OcppStartTransactionResponse{} }},
		Feature{MsgType_StatusNotification, func() Request { return &OcppStatusNotification{} }, func() Response { return &OcppStatusNotificationResponse{} }},
		Feature{MsgType_StopTransaction, func() Request { return &OcppStopTransaction{} }, func() Response { return &OcppStopTransactionResponse{} }},
		Feature{MsgType_ChangeAvailability, func() Request { return &OcppChangeAvailability{} }, func() Response { return &OcppChangeAvailabilityResponse{} }},
		Feature{MsgType_ChangeConfiguration, func() Request { return &OcppChangeConfiguration{} }, func() Response { return &OcppChangeConfigurationResponse{} }},
		Feature{MsgType_ClearCache, func() Request { return &OcppClearCache{} }, func() Response { return &OcppClearCacheResponse{} }},
		Feature{MsgType_ClearChargingProfile, func() Request { return &OcppClearChargingProfile{} }, func() Response { return &OcppClearChargingProfileResponse{} }},
		Feature{MsgType_GetConfiguration, func() Request { return &OcppGetConfiguration{} }, func() Response { return &OcppGetConfigurationResponse{} }},
		Feature{MsgType_GetDiagnostics, func() Request { return &OcppGetDiagnostics{} }, func() Response { return &OcppGetDiagnosticsResponse{} }},
		Feature{MsgType_RemoteStartTransaction, func() Request { return &OcppRemoteStartTransaction{} }, func() Response { return &OcppRemoteStartTransactionResponse{} }},
		Feature{MsgType_RemoteStopTransaction, func() Request { return &OcppRemoteStopTransaction{} }, func() Response { return &OcppRemoteStopTransactionResponse{} }},
		Feature{MsgType_Reset, func() Request { return &OcppReset{} }, func() Response { return &OcppResetResponse{} }},
		Feature{MsgType_TriggerMessage, func() Request { return &OcppTriggerMessage{} }, func() Response { return &OcppTriggerMessageResponse{} }},
		Feature{MsgType_UnlockConnector, func() Request { return &OcppUnlockConnector{} }, func() Response { return &OcppUnlockConnectorResponse{} }},
		Feature{MsgType_UpdateFirmware, func() Request { return &OcppUpdateFirmware{} }, func() Response { return &OcppUpdateFirmwareResponse{} }},
	)
}
