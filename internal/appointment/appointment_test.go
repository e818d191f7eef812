package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateSlot("2026-03-11", "09:30", now))
	assert.NoError(t, ValidateSlot("2026-03-10", "12:30", now))

	assert.ErrorIs(t, ValidateSlot("2026-03-09", "09:30", now), ErrPastDate)
	assert.ErrorIs(t, ValidateSlot("2026-03-10", "11:00", now), ErrPastDate)

	assert.Error(t, ValidateSlot("11-03-2026", "09:30", now))
	assert.Error(t, ValidateSlot("2026-03-11", "9.30", now))
	assert.Error(t, ValidateSlot("", "", now))
}
