package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertError_IsInvalidRequest(t *testing.T) {
	err := NewAlertError("A new servicio cannot already have an ID", "servicio", "idexists")

	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.False(t, errors.Is(err, ErrorNotFound))
	assert.Equal(t, "A new servicio cannot already have an ID (servicio.idexists)", err.Error())
}

func TestAlertError_SurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewAlertError("Invalid id", "servicio", "idnull"))

	var alert *AlertError
	if !errors.As(wrapped, &alert) {
		t.Fatalf("expected AlertError in chain, got %v", wrapped)
	}
	assert.Equal(t, "idnull", alert.ErrorKey)
	assert.Equal(t, "servicio", alert.EntityName)
	assert.ErrorIs(t, wrapped, ErrInvalidRequest)
}
