package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "user-9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", UserChannel("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"))
}

func TestNoop_Publish(t *testing.T) {
	var p Publisher = Noop{}

	assert.NoError(t, p.Publish("wallet-1", Message{Type: TypeTicketIssued}))
}
