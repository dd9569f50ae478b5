package probing

import (
	"golang.org/x/sys/unix"
)

// maxCPUs bounds the scan of a CPU affinity mask.
const maxCPUs = 1024

// DetectActiveCores returns the cores in the calling thread's affinity mask,
// or [0] when the mask cannot be read or is empty.
func DetectActiveCores() []int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return []int{0}
	}

	n := set.Count()
	cores := make([]int, 0, n)
	for i := 0; i < maxCPUs && len(cores) < n; i++ {
		if set.IsSet(i) {
			cores = append(cores, i)
		}
	}
	if len(cores) == 0 {
		return []int{0}
	}
	return cores
}
