package collecting

import (
	"io"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/phuslu/log"
)

var quiet = &log.Logger{Level: log.PanicLevel, Writer: &log.IOWriter{Writer: io.Discard}}

func TestUninitializedMeter(t *testing.T) {
	var n NvidiaMeter
	if _, ok := n.TotalEnergy(); ok {
		t.Error("uninitialized meter should report no energy")
	}
	if n.Devices() != nil {
		t.Error("uninitialized meter should list no devices")
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestArchToString(t *testing.T) {
	if got := archToString(nvml.DEVICE_ARCH_HOPPER); got != "Hopper" {
		t.Errorf("archToString(Hopper) = %q", got)
	}
	if got := archToString(nvml.DeviceArchitecture(999)); got != "Unknown(999)" {
		t.Errorf("archToString(999) = %q", got)
	}
}

func TestNvidiaMeter(t *testing.T) {
	n, err := NewNvidiaMeter(quiet)
	if err != nil {
		t.Skipf("NVML not available: %v", err)
	}
	defer n.Close()

	if len(n.Devices()) == 0 {
		t.Error("initialized meter should list devices")
	}
	a, okA := n.TotalEnergy()
	b, okB := n.TotalEnergy()
	if okA && okB && b < a {
		t.Errorf("energy went backwards: %d then %d", a, b)
	}
}
