package cellrate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInconsistentCapacityError_Message(t *testing.T) {
	err := &InconsistentCapacityError{Capacity: 3, CellWeight: 5}
	require.Equal(t, "cellrate: bucket capacity 3 too small for a single cell with weight 5", err.Error())
}

func TestCheckCapacity(t *testing.T) {
	require.NoError(t, checkCapacity(5, 1))
	require.NoError(t, checkCapacity(5, 5))
	require.Error(t, checkCapacity(5, 6))
	require.Error(t, checkCapacity(0, 1))
	require.Error(t, checkCapacity(5, 0))
}
