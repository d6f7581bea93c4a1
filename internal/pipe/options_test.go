package pipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDirection_Properties tests read/write permissions and mirroring per direction
func TestDirection_Properties(t *testing.T) {
	tests := []struct {
		dir      Direction
		str      string
		canRead  bool
		canWrite bool
		mirror   Direction
	}{
		{DirectionIn, "in", true, false, DirectionOut},
		{DirectionOut, "out", false, true, DirectionIn},
		{DirectionInOut, "inout", true, true, DirectionInOut},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.dir.String())
			assert.Equal(t, tt.canRead, tt.dir.CanRead())
			assert.Equal(t, tt.canWrite, tt.dir.CanWrite())
			assert.Equal(t, tt.mirror, tt.dir.Mirror())
		})
	}

	assert.Equal(t, "unknown", Direction(42).String())
}

// TestTransmissionMode_String tests the mode names
func TestTransmissionMode_String(t *testing.T) {
	assert.Equal(t, "byte", ModeByte.String())
	assert.Equal(t, "message", ModeMessage.String())
	assert.Equal(t, "unknown", TransmissionMode(7).String())
}

// TestServerOptions_Normalize tests defaulting and validation of server options
func TestServerOptions_Normalize(t *testing.T) {
	t.Run("nil options get defaults", func(t *testing.T) {
		var opts *ServerOptions
		o, err := opts.normalize()
		require.NoError(t, err)
		assert.Equal(t, DirectionIn, o.Direction)
		assert.Equal(t, ModeByte, o.Mode)
		assert.Equal(t, 1, o.MaxInstances)
		assert.NotNil(t, o.Logger)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := (&ServerOptions{Direction: Direction(9)}).normalize()
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("invalid mode", func(t *testing.T) {
		_, err := (&ServerOptions{Mode: TransmissionMode(9)}).normalize()
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("negative max instances", func(t *testing.T) {
		_, err := (&ServerOptions{MaxInstances: -1}).normalize()
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("negative buffer size", func(t *testing.T) {
		_, err := (&ServerOptions{InputBufferSize: -4096}).normalize()
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("caller options are not mutated", func(t *testing.T) {
		in := &ServerOptions{MaxInstances: 0}
		o, err := in.normalize()
		require.NoError(t, err)
		assert.Equal(t, 1, o.MaxInstances)
		assert.Equal(t, 0, in.MaxInstances)
	})
}

// TestClientOptions_Normalize tests defaulting and validation of client options
func TestClientOptions_Normalize(t *testing.T) {
	var opts *ClientOptions
	o, err := opts.normalize()
	require.NoError(t, err)
	assert.NotNil(t, o.Logger)

	_, err = (&ClientOptions{Direction: Direction(9)}).normalize()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = (&ClientOptions{Mode: TransmissionMode(9)}).normalize()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
