package session

import (
	"context"
	"testing"
	"time"

	"sw/ocpp/central/internal/ocpp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureWait(t *testing.T) {
	f := newFuture("1", ocpp.MsgType_Reset)
	go f.resolve(&ocpp.OcppResetResponse{Status: "Accepted"}, nil)

	response, err := f.Wait(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Accepted", response.(*ocpp.OcppResetResponse).Status)
	resp2, err2 := f.Result()
	assert.Equal(t, response, resp2)
	assert.NoError(t, err2)
	assert.Equal(t, "1", f.UniqueId())
	assert.Equal(t, ocpp.MsgType_Reset, f.Action())
}

func TestFutureWaitContext(t *testing.T) {
	f := newFuture("1", ocpp.MsgType_Reset)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	select {
	case <-f.Done():
		t.Fatal("future resolved")
	default:
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "Closing", StateClosing.String())
	assert.Equal(t, "Closed", StateClosed.String())
}
