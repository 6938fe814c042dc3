package redis

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	timers "venue-timers/internal/timers/domain"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

// EncodeState serializes a snapshot.
func EncodeState(state timers.TimerState) ([]byte, error) {
	data, err := encMode.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode timer state: %w", err)
	}
	return data, nil
}

// DecodeState parses and validates a snapshot.
func DecodeState(data []byte) (timers.TimerState, error) {
	var state timers.TimerState
	if err := decMode.Unmarshal(data, &state); err != nil {
		return timers.TimerState{}, fmt.Errorf("decode timer state: %w", err)
	}
	if err := state.Validate(); err != nil {
		return timers.TimerState{}, err
	}
	return state, nil
}
