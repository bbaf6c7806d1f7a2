package telemetry

import (
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	log "github.com/sirupsen/logrus"
	logrus_appinsights "github.com/steve-white/logrus-appinsights"
)

var client appinsights.TelemetryClient

// NewTelemetryClient returns a logrus hook for Application Insights, or nil when no
// instrumentation key is configured. The Track functions are no-ops until it is called.
func NewTelemetryClient(instrumentationKey string, roleName string) (*logrus_appinsights.AppInsightsHook, error) {
	if len(instrumentationKey) == 0 {
		return nil, nil
	}

	hook, err := logrus_appinsights.New(roleName, logrus_appinsights.Config{
		InstrumentationKey: instrumentationKey,
		MaxBatchSize:       10,
		MaxBatchInterval:   time.Second * 5,
	})
	if err != nil {
		return nil, err
	}

	hook.SetLevels([]log.Level{
		log.PanicLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	})
	client = hook.Client
	return hook, nil
}

func TrackConnectionRequest(url string, duration time.Duration, responseCode string) {
	if client == nil {
		return
	}
	client.TrackRequest("GET", url, duration, responseCode)
}

func TrackAuthenticationEvent(chargePointId string, clientAddress string, responseCode string) {
	if client == nil {
		return
	}

	event := appinsights.NewEventTelemetry("AuthenticationEvent")
	event.Properties["chargePointId"] = chargePointId
	event.Properties["clientAddress"] = clientAddress
	event.Properties["responseCode"] = responseCode
	client.Track(event)
}

// TrackOcppRequest records one answered Call. responseCode is the CallError code, or
// "200" for a CallResult.
func TrackOcppRequest(chargePointId string, clientAddress string, uniqueId string, action string, responseCode string, duration time.Duration) {
	if client == nil {
		return
	}

	request := appinsights.NewRequestTelemetry("OCPP", action, duration, responseCode)
	request.Source = clientAddress
	request.Success = responseCode == "200"
	request.Properties["uniqueId"] = uniqueId
	request.Properties["chargePointId"] = chargePointId
	client.Track(request)
}

func TrackTraceWarning(message string) {
	if client == nil {
		return
	}
	client.Track(appinsights.NewTraceTelemetry(message, appinsights.Warning))
}
