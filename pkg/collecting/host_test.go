package collecting

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeCache(t *testing.T, dir, level, cType, size, shared string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, "level"), level+"\n")
	writeFile(t, filepath.Join(dir, "type"), cType+"\n")
	writeFile(t, filepath.Join(dir, "size"), size+"\n")
	writeFile(t, filepath.Join(dir, "shared_cpu_map"), shared+"\n")
}

func TestCollectHostFixtures(t *testing.T) {
	root := t.TempDir()
	cpuinfo := filepath.Join(root, "cpuinfo")
	meminfo := filepath.Join(root, "meminfo")
	writeFile(t, cpuinfo, "processor\t: 0\nmodel name\t: Test CPU @ 3.00GHz\n")
	writeFile(t, meminfo, "MemTotal:       16384 kB\nMemFree:         1024 kB\nSwapTotal:        2048 kB\n")

	cache := filepath.Join(root, "cpu")
	writeCache(t, filepath.Join(cache, "cpu0", "cache", "index0"), "1", "Data", "32K", "01")
	writeCache(t, filepath.Join(cache, "cpu0", "cache", "index1"), "1", "Instruction", "32K", "01")
	writeCache(t, filepath.Join(cache, "cpu0", "cache", "index2"), "2", "Unified", "1024K", "03")
	writeCache(t, filepath.Join(cache, "cpu1", "cache", "index0"), "1", "Data", "32K", "02")
	writeCache(t, filepath.Join(cache, "cpu1", "cache", "index2"), "2", "Unified", "1024K", "03")

	h := collectHost(hostPaths{
		cpuinfo:   cpuinfo,
		meminfo:   meminfo,
		cacheGlob: filepath.Join(cache, "cpu*", "cache", "index*"),
	})

	if h.CPUType != "Test CPU @ 3.00GHz" {
		t.Errorf("CPUType = %q", h.CPUType)
	}
	if h.CPUCache != "L1d:64K L1i:32K L2:1M" {
		t.Errorf("CPUCache = %q", h.CPUCache)
	}
	if h.MemoryTotalBytes != 16384*1024 {
		t.Errorf("MemoryTotalBytes = %d", h.MemoryTotalBytes)
	}
	if h.SwapTotalBytes != 2048*1024 {
		t.Errorf("SwapTotalBytes = %d", h.SwapTotalBytes)
	}
	if h.NumProcessors < 1 {
		t.Errorf("NumProcessors = %d", h.NumProcessors)
	}
}

func TestCollectHostMissingFiles(t *testing.T) {
	dir := t.TempDir()
	h := collectHost(hostPaths{
		cpuinfo:   filepath.Join(dir, "nope"),
		meminfo:   filepath.Join(dir, "nope"),
		cacheGlob: filepath.Join(dir, "nope*"),
	})
	if h.CPUType != "unknown" || h.CPUCache != "" || h.MemoryTotalBytes != 0 {
		t.Errorf("missing sources should leave fields empty, got %+v", h)
	}
}
