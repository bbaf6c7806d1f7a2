package endpoint

import (
	"regexp"
	"strings"

	"github.com/juju/errors"
)

const ChargePointIdMaxLen = 32

var validChargePointId = regexp.MustCompile(`^[A-Za-z0-9\-]+$`).MatchString

// ChargePointIdFromPath extracts the charge point id following prefix. Ids longer than
// ChargePointIdMaxLen are rejected, never shortened, so two ids can't share a session.
func ChargePointIdFromPath(urlPath string, prefix string) (string, error) {
	if !strings.HasPrefix(urlPath, prefix) {
		return "", errors.NotFoundf("path %q", urlPath)
	}
	chargePointId := urlPath[len(prefix):]
	if chargePointId == "" || strings.Contains(chargePointId, "/") {
		return "", errors.NotValidf("charge point id %q", chargePointId)
	}

	if len(chargePointId) > ChargePointIdMaxLen {
		return "", errors.NotValidf("charge point id %q longer than %d characters", chargePointId, ChargePointIdMaxLen)
	}
	if !validChargePointId(chargePointId) {
		return "", errors.NotValidf("charge point id %q", chargePointId)
	}
	return chargePointId, nil
}

