package matchhub

import (
	"testing"

	"radargo/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

// A join or leave goroutine can still be blocked on the matcher when the
// socket drops and the hub closes the client. The late push must be dropped
// silently, not send on the closed channel.
func TestPushAfterCloseIsDropped(t *testing.T) {
	c := &WebSocketClient{
		ParticipantID: "p1",
		Send:          make(chan models.ChangeEvent, 1),
	}
	c.Close()

	assert.NotPanics(t, func() {
		c.push(models.ChangeEvent{
			Table:         models.TableQueue,
			Op:            models.OpUpdate,
			ParticipantID: "p1",
			Status:        models.QueueWaiting,
		})
	})
}

func TestClientCloseIsIdempotent(t *testing.T) {
	c := &WebSocketClient{Send: make(chan models.ChangeEvent, 1)}
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestPushBeforeCloseDelivers(t *testing.T) {
	c := &WebSocketClient{
		ParticipantID: "p1",
		Send:          make(chan models.ChangeEvent, 1),
	}
	c.push(models.ChangeEvent{Table: models.TableQueue, ParticipantID: "p1"})

	ev := <-c.Send
	assert.Equal(t, "p1", ev.ParticipantID)
}
