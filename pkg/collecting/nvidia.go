// Package collecting samples optional hardware sources alongside phases.
package collecting

import (
	"errors"
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/phuslu/log"
)

// GPUInfo identifies one device in reports.
type GPUInfo struct {
	Index            int    `json:"index"`
	Name             string `json:"name"`
	UUID             string `json:"uuid"`
	Architecture     string `json:"architecture"`
	MemoryTotalBytes int64  `json:"memoryTotalBytes"`
	PowerLimitMw     int    `json:"powerLimitMw"`
}

// NvidiaMeter reads cumulative energy from every visible NVIDIA device.
type NvidiaMeter struct {
	initialized bool
	devices     []nvml.Device
	logger      *log.Logger
}

// NewNvidiaMeter initializes NVML. It fails when the library or devices are missing.
func NewNvidiaMeter(logger *log.Logger) (*NvidiaMeter, error) {
	if logger == nil {
		logger = &log.DefaultLogger
	}
	n := &NvidiaMeter{logger: logger}
	if err := n.init(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *NvidiaMeter) init() error {
	if n.initialized {
		return nil
	}
	if ret := nvml.Init(); !errors.Is(ret, nvml.SUCCESS) {
		return fmt.Errorf("failed to initialize NVML: %s", nvml.ErrorString(ret))
	}

	count, ret := nvml.DeviceGetCount()
	if !errors.Is(ret, nvml.SUCCESS) || count == 0 {
		nvml.Shutdown()
		return fmt.Errorf("no NVIDIA devices found")
	}

	n.devices = make([]nvml.Device, 0, count)
	for i := 0; i < count; i++ {
		if d, ret := nvml.DeviceGetHandleByIndex(i); errors.Is(ret, nvml.SUCCESS) {
			n.devices = append(n.devices, d)
		}
	}

	n.initialized = true
	n.logger.Info().Int("devices", len(n.devices)).Msg("NVML initialized")
	return nil
}

// TotalEnergy sums millijoules consumed since driver load across devices.
// ok is false when no device reports energy.
func (n *NvidiaMeter) TotalEnergy() (uint64, bool) {
	if !n.initialized {
		return 0, false
	}
	var total uint64
	ok := false
	for _, d := range n.devices {
		if mj, ret := d.GetTotalEnergyConsumption(); errors.Is(ret, nvml.SUCCESS) {
			total += mj
			ok = true
		}
	}
	return total, ok
}

// Devices describes every initialized device.
func (n *NvidiaMeter) Devices() []GPUInfo {
	if !n.initialized {
		return nil
	}
	gpus := make([]GPUInfo, 0, len(n.devices))
	for i, d := range n.devices {
		gpus = append(gpus, deviceInfo(d, i))
	}
	return gpus
}

func (n *NvidiaMeter) Close() error {
	if n.initialized {
		nvml.Shutdown()
		n.initialized = false
	}
	return nil
}

func capture[T any](call func() (T, nvml.Return), dst *T) bool {
	if val, ret := call(); errors.Is(ret, nvml.SUCCESS) {
		*dst = val
		return true
	}
	return false
}

func deviceInfo(device nvml.Device, index int) GPUInfo {
	gpu := GPUInfo{Index: index}

	capture(device.GetName, &gpu.Name)
	capture(device.GetUUID, &gpu.UUID)

	if arch, ret := device.GetArchitecture(); errors.Is(ret, nvml.SUCCESS) {
		gpu.Architecture = archToString(arch)
	}
	if mem, ret := device.GetMemoryInfo(); errors.Is(ret, nvml.SUCCESS) {
		gpu.MemoryTotalBytes = int64(mem.Total)
	}
	var limit uint32
	if capture(device.GetPowerManagementLimit, &limit) {
		gpu.PowerLimitMw = int(limit)
	}
	return gpu
}

var archNames = map[nvml.DeviceArchitecture]string{
	nvml.DEVICE_ARCH_KEPLER:  "Kepler",
	nvml.DEVICE_ARCH_MAXWELL: "Maxwell",
	nvml.DEVICE_ARCH_PASCAL:  "Pascal",
	nvml.DEVICE_ARCH_VOLTA:   "Volta",
	nvml.DEVICE_ARCH_TURING:  "Turing",
	nvml.DEVICE_ARCH_AMPERE:  "Ampere",
	nvml.DEVICE_ARCH_ADA:     "Ada",
	nvml.DEVICE_ARCH_HOPPER:  "Hopper",
}

func archToString(arch nvml.DeviceArchitecture) string {
	if s, ok := archNames[arch]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%v)", arch)
}
