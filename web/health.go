package web

import (
	"fmt"
	"net/http"
)

type check struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	Msg  string `json:"msg,omitempty"`
}

// readiness reports 503 if the posts cannot be read or, when disk stats are
// available, the disk is short of space.
func (h *handler) readiness(w http.ResponseWriter, _ *http.Request) {
	checks := []check{}
	ready := true

	if _, err := h.repo.List(); err != nil {
		checks = append(checks, check{"store_readable", false, err.Error()})
		ready = false
	} else {
		checks = append(checks, check{"store_readable", true, ""})
	}

	// A zero total means stats are unavailable on this platform.
	if h.cfg.Disk != nil {
		avail, total := h.cfg.Disk.DiskStats()
		if total > 0 {
			ok := avail >= h.cfg.MinFreeBytes
			checks = append(checks, check{"disk_space", ok, fmt.Sprintf("%d MB free of %d MB", avail>>20, total>>20)})
			ready = ready && ok
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{"ready": ready, "checks": checks})
}
