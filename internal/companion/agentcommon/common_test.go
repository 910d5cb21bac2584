package agentcommon

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectorArgs(t *testing.T) {
	assert.Equal(t, []string{"--token", "T", "--api-url", "U"}, ConnectorArgs("T", "U"))
	assert.Equal(t, []string{"--token", "", "--api-url", ""}, ConnectorArgs("", ""))
}

func TestErrorTaxonomy(t *testing.T) {
	for _, err := range []error{ErrIO, ErrFormat, ErrSpawn, ErrKill, ErrLock, ErrInvalidArgs, ErrUnknownCommand} {
		assert.True(t, errors.Is(err, ErrCompanion), err.Error())
	}
	assert.False(t, errors.Is(ErrIO, ErrFormat))
	assert.Equal(t, http.StatusInternalServerError, ErrSpawn.StatusCode())
	assert.Equal(t, http.StatusUnprocessableEntity, ErrFormat.StatusCode())
	assert.Equal(t, http.StatusBadRequest, ErrInvalidArgs.StatusCode())
}
