package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestDefaultFromList(t *testing.T) {
	devices := []Device{
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
		{ID: "elgato", Description: "Elgato Wave 3 Mono", Available: true, Default: true},
	}

	dev, err := defaultFromList(devices)
	require.NoError(t, err)
	require.Equal(t, "elgato", dev.ID)
}

func TestDefaultFromListNoDefault(t *testing.T) {
	devices := []Device{{ID: "sony", Description: "Sony WH-1000XM6", Available: true}}

	_, err := defaultFromList(devices)
	require.ErrorIs(t, err, ErrNoDefaultSource)

	_, err = defaultFromList(nil)
	require.ErrorIs(t, err, ErrNoDefaultSource)
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestDefaultSourceFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := DefaultSource(context.Background())
	require.Error(t, err)
}

func TestSourceStateString(t *testing.T) {
	require.Equal(t, "running", sourceStateString(0))
	require.Equal(t, "idle", sourceStateString(1))
	require.Equal(t, "suspended", sourceStateString(2))
	require.Equal(t, "unknown(99)", sourceStateString(99))
}

func TestSourceAvailable(t *testing.T) {
	require.False(t, sourceAvailable(nil))
	require.True(t, sourceAvailable(&pulseproto.GetSourceInfoReply{})) // no ports => available

	available := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, available, []sourcePort{{name: "mic", available: 2}})
	require.True(t, sourceAvailable(available))

	notAvailable := &pulseproto.GetSourceInfoReply{ActivePortName: "mic"}
	setSourcePorts(t, notAvailable, []sourcePort{{name: "mic", available: 1}})
	require.False(t, sourceAvailable(notAvailable))

	inactivePortOnly := &pulseproto.GetSourceInfoReply{ActivePortName: "line-in"}
	setSourcePorts(t, inactivePortOnly, []sourcePort{{name: "mic", available: 1}})
	require.True(t, sourceAvailable(inactivePortOnly))
}

type sourcePort struct {
	name      string
	available uint32
}

// setSourcePorts fills the anonymous-struct Ports slice via reflection; the
// proto package gives the port type no name to construct directly.
func setSourcePorts(t *testing.T, reply *pulseproto.GetSourceInfoReply, ports []sourcePort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	replyValue := reflect.ValueOf(reply).Elem().FieldByName("Ports")
	replyValue.Set(sliceValue)
}
