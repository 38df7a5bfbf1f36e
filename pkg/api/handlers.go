package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/crcbd/pkg/blockdev"
)

// handleHealth reports that the server is up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleDevice describes the device's layout, policy and counters.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfg := s.device.Config()
	info := DeviceInfo{
		ID:             s.device.ID().String(),
		Geometry:       s.device.Geometry(),
		Config:         cfg,
		PayloadSize:    cfg.PayloadSize(),
		Size:           s.device.Size(),
		Ownership:      s.device.Ownership().String(),
		MaxCorrectable: s.device.Policy().MaxAllowed(),
		Stats:          s.device.Stats(),
	}
	s.mu.Unlock()

	sendSuccess(w, info)
}

// handleStats returns the device's operation counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stats := s.device.Stats()
	s.mu.Unlock()

	sendSuccess(w, stats)
}

// handleRead returns raw payload bytes. The offset defaults to 0 and the
// size to one read unit.
//
//	GET /blocks/{block}?offset=0&size=28
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	off, ok := uintQuery(w, r, "offset", 0)
	if !ok {
		return
	}
	size, ok := uintQuery(w, r, "size", uint64(s.device.Geometry().ReadSize))
	if !ok {
		return
	}
	if size > uint64(s.device.Geometry().BlockSize) {
		sendError(w, fmt.Sprintf("size %d exceeds block size", size), http.StatusBadRequest)
		return
	}

	buf := make([]byte, size)
	err := s.do("read", func() error {
		return s.device.Read(block, uint32(off), buf)
	})
	if err != nil {
		sendDeviceError(w, "read", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

// handleProg programs the raw request body into a block.
//
//	PUT /blocks/{block}?offset=0
func (s *Server) handleProg(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}
	off, ok := uintQuery(w, r, "offset", 0)
	if !ok {
		return
	}

	limit := int64(s.device.Geometry().BlockSize)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to read request body: %v", err), http.StatusBadRequest)
		return
	}

	err = s.do("prog", func() error {
		return s.device.Prog(block, uint32(off), body)
	})
	if err != nil {
		sendDeviceError(w, "prog", err)
		return
	}

	sendSuccess(w, map[string]interface{}{"block": block, "offset": off, "size": len(body)})
}

// handleErase erases a block.
func (s *Server) handleErase(w http.ResponseWriter, r *http.Request) {
	block, ok := blockParam(w, r)
	if !ok {
		return
	}

	if err := s.do("erase", func() error { return s.device.Erase(block) }); err != nil {
		sendDeviceError(w, "erase", err)
		return
	}

	sendSuccess(w, map[string]interface{}{"block": block})
}

// handleSync syncs the device.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if err := s.do("sync", s.device.Sync); err != nil {
		sendDeviceError(w, "sync", err)
		return
	}

	sendSuccess(w, map[string]string{"message": "Device synced"})
}

// handleFault flips one bit of the backing memory.
//
//	POST /faults {"addr": 42, "bit": 3}
func (s *Server) handleFault(w http.ResponseWriter, r *http.Request) {
	var req FaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid JSON request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	err := s.device.FlipBit(req.Addr, req.Bit)
	s.mu.Unlock()
	if err != nil {
		sendDeviceError(w, "flip bit", err)
		return
	}

	s.metrics.RecordFault()
	s.logger.Info("injected fault", "addr", req.Addr, "bit", req.Bit)
	sendSuccess(w, req)
}

// do runs a device operation under the server lock and records it.
func (s *Server) do(operation string, fn func() error) error {
	start := time.Now()
	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	s.metrics.RecordDeviceOperation(operation, err == nil, time.Since(start))
	return err
}

// statusFor maps a device error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, blockdev.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, blockdev.ErrCorrupt):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func sendDeviceError(w http.ResponseWriter, operation string, err error) {
	sendError(w, fmt.Sprintf("Failed to %s: %v", operation, err), statusFor(err))
}

func blockParam(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "block")
	block, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid block %q", raw), http.StatusBadRequest)
		return 0, false
	}
	return uint32(block), true
}

func uintQuery(w http.ResponseWriter, r *http.Request, name string, def uint64) (uint64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		sendError(w, fmt.Sprintf("Invalid %s %q", name, raw), http.StatusBadRequest)
		return 0, false
	}
	return v, true
}
