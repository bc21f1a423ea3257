// Package topology discovers sockets and cores from Linux sysfs
package topology

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// DefaultRoot is where sysfs is mounted on a normal host
const DefaultRoot = "/sys"

// Topology is the processor layout the IOGroups size themselves by
type Topology struct {
	Sockets        int
	CoresPerSocket int
	// CPUs is the number of logical CPUs, hyperthreads included
	CPUs int
}

// Cores returns sockets × cores-per-socket
func (t Topology) Cores() int {
	return t.Sockets * t.CoresPerSocket
}

// Discoverer reads topology from a sysfs tree on an afero filesystem
type Discoverer struct {
	fs   afero.Fs
	root string
}

// NewDiscoverer creates a discoverer over fs rooted at root.
// A nil fs means the host filesystem, an empty root means DefaultRoot.
func NewDiscoverer(fs afero.Fs, root string) *Discoverer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if root == "" {
		root = DefaultRoot
	}
	return &Discoverer{fs: fs, root: root}
}

// Discover walks cpu*/topology and counts distinct packages and the largest
// number of distinct core ids found in any one package
func (d *Discoverer) Discover() (Topology, error) {
	cpuDir := filepath.Join(d.root, "devices", "system", "cpu")
	entries, err := afero.ReadDir(d.fs, cpuDir)
	if err != nil {
		return Topology{}, fmt.Errorf("failed to list %s: %w", cpuDir, err)
	}

	cores := make(map[int]map[int]struct{})
	cpus := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !isCPUDir(name) {
			continue
		}
		topoDir := filepath.Join(cpuDir, name, "topology")
		pkg, err := d.readInt(filepath.Join(topoDir, "physical_package_id"))
		if err != nil {
			// Offline CPUs have no topology directory
			continue
		}
		core, err := d.readInt(filepath.Join(topoDir, "core_id"))
		if err != nil {
			continue
		}
		if cores[pkg] == nil {
			cores[pkg] = make(map[int]struct{})
		}
		cores[pkg][core] = struct{}{}
		cpus++
	}

	if len(cores) == 0 {
		return Topology{}, fmt.Errorf("no cpu topology found under %s", cpuDir)
	}

	perSocket := 0
	for _, ids := range cores {
		if len(ids) > perSocket {
			perSocket = len(ids)
		}
	}

	return Topology{
		Sockets:        len(cores),
		CoresPerSocket: perSocket,
		CPUs:           cpus,
	}, nil
}

// Packages returns the sorted package ids present, mostly for diagnostics
func (d *Discoverer) Packages() ([]int, error) {
	pattern := filepath.Join(d.root, "devices", "system", "cpu", "cpu*", "topology", "physical_package_id")
	matches, err := afero.Glob(d.fs, pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]struct{})
	for _, path := range matches {
		if id, err := d.readInt(path); err == nil {
			seen[id] = struct{}{}
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (d *Discoverer) readInt(path string) (int, error) {
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func isCPUDir(name string) bool {
	if !strings.HasPrefix(name, "cpu") {
		return false
	}
	_, err := strconv.Atoi(name[len("cpu"):])
	return err == nil
}

// Fallback is used when sysfs is unavailable
func Fallback() Topology {
	n := runtime.NumCPU()
	return Topology{Sockets: 1, CoresPerSocket: n, CPUs: n}
}

// Discover reads the host topology, falling back to one socket holding every
// logical CPU when sysfs cannot be read
func Discover(root string) Topology {
	t, err := NewDiscoverer(nil, root).Discover()
	if err != nil {
		return Fallback()
	}
	return t
}
