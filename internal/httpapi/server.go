// Package httpapi exposes the supervisor over plain net/http, mirroring
// app.py's REST contract and the teacher's own handler style in main.go
// (no router framework, http.HandleFunc on a ServeMux).
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamsquirrel/aes67gateway/internal/gwconfig"
	"github.com/streamsquirrel/aes67gateway/internal/metrics"
	"github.com/streamsquirrel/aes67gateway/internal/supervisor"
	"github.com/streamsquirrel/aes67gateway/internal/sysinfo"
)

// Server wires the supervisor and metrics registry into an http.Handler.
type Server struct {
	sup     *supervisor.Supervisor
	metrics *metrics.Metrics
	mux     *http.ServeMux
	hub     *statusHub
}

// New builds the full route table described in spec.md §4.7.
func New(sup *supervisor.Supervisor, m *metrics.Metrics) *Server {
	s := &Server{sup: sup, metrics: m, mux: http.NewServeMux(), hub: newStatusHub()}
	s.routes()
	return s
}

// Handler returns the composed, middleware-wrapped handler ready to serve.
func (s *Server) Handler() http.Handler {
	return accessLogMiddleware(gzipMiddleware(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/sources", s.handleSources)
	s.mux.HandleFunc("/api/config", s.handleConfig)
	s.mux.HandleFunc("/api/config/slot", s.handleConfigSlot)
	s.mux.HandleFunc("/api/active_slots", s.handleActiveSlots)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/start", s.handleStart)
	s.mux.HandleFunc("/api/stop", s.handleStop)
	s.mux.HandleFunc("/api/slot/", s.handleSlotSubroute)
	s.mux.HandleFunc("/api/debug/slot/", s.handleDebugSlot)
	s.mux.HandleFunc("/api/system/info", s.handleSystemInfo)
	s.mux.HandleFunc("/ws/status", s.hub.serveWS)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}

// ndiSourceJSON mirrors the original NDISource pydantic model.
type ndiSourceJSON struct {
	Name string `json:"name"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	names, err := supervisor.ListSources(250)
	if err != nil {
		s.metrics.IncNDISourceListError()
		log.Printf("httpapi: list sources: %v", err)
		writeJSON(w, http.StatusOK, []ndiSourceJSON{})
		return
	}
	out := make([]ndiSourceJSON, len(names))
	for i, n := range names {
		out[i] = ndiSourceJSON{Name: n}
	}
	writeJSON(w, http.StatusOK, out)
}

type systemConfigJSON struct {
	Slots []gwconfig.SlotConfig `json:"slots"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, systemConfigJSON{Slots: s.sup.Config().Slots})
}

func (s *Server) handleConfigSlot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.sup.CurrentStatus().Running {
		writeJSON(w, http.StatusOK, systemConfigJSON{Slots: s.sup.Config().Slots})
		return
	}

	var updated gwconfig.SlotConfig
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	cfg := s.sup.Config()
	for i, sc := range cfg.Slots {
		if sc.SlotID == updated.SlotID {
			cfg.Slots[i] = updated
			break
		}
	}
	writeJSON(w, http.StatusOK, systemConfigJSON{Slots: cfg.Slots})
}

func (s *Server) handleActiveSlots(w http.ResponseWriter, r *http.Request) {
	ids := s.sup.ActiveSlotIDs()
	if ids == nil {
		ids = []int{}
	}
	writeJSON(w, http.StatusOK, ids)
}

type statusJSON struct {
	Running bool   `json:"running"`
	Message string `json:"message"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.sup.CurrentStatus()
	writeJSON(w, http.StatusOK, statusJSON{Running: st.Running, Message: st.Message})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st := s.sup.Start(r.Context())
	s.metrics.SetGatewayRunning(st.Running)
	s.hub.broadcast(s.sup)
	writeJSON(w, http.StatusOK, statusJSON{Running: st.Running, Message: st.Message})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	st := s.sup.Stop()
	s.metrics.SetGatewayRunning(st.Running)
	s.hub.broadcast(s.sup)
	writeJSON(w, http.StatusOK, statusJSON{Running: st.Running, Message: st.Message})
}

// handleSlotSubroute dispatches /api/slot/{id}/sdp and /sdp_monitor, since
// net/http's ServeMux (pre-1.22 pattern style, matching the teacher's Go
// version) has no path parameter support.
func (s *Server) handleSlotSubroute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/slot/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	slotID, err := strconv.Atoi(parts[0])
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch parts[1] {
	case "sdp":
		s.serveSDP(w, slotID, false)
	case "sdp_monitor":
		s.serveSDP(w, slotID, true)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *Server) serveSDP(w http.ResponseWriter, slotID int, monitor bool) {
	var sdpText string
	var ok bool
	filename := "slot" + strconv.Itoa(slotID) + ".sdp"
	if monitor {
		sdpText, ok = s.sup.SlotMonitorSDP(slotID)
		filename = "slot" + strconv.Itoa(slotID) + "_monitor.sdp"
	} else {
		sdpText, ok = s.sup.SlotSDP(slotID)
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/sdp")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(sdpText))
}

type debugSlotJSON struct {
	Running bool            `json:"running"`
	SlotID  int             `json:"slot_id"`
	Active  bool            `json:"active"`
	Status  *slotStatusJSON `json:"status,omitempty"`
}

type slotStatusJSON struct {
	NDISourceName   string `json:"ndi_source_name"`
	AES67StreamName string `json:"aes67_name"`
	Mcast           string `json:"mcast"`
	MonitorPort     int    `json:"monitor_port,omitempty"`
	AudioFrames     uint64 `json:"audio_frames"`
	RTPPackets      uint64 `json:"rtp_packets"`
	RTPLastError    string `json:"rtp_last_error"`
	RTPMonPackets   uint64 `json:"rtp_mon_packets"`
	RTPMonLastError string `json:"rtp_mon_last_error"`
	LastError       string `json:"error"`
}

func (s *Server) handleDebugSlot(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/debug/slot/")
	slotID, err := strconv.Atoi(idStr)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	running := s.sup.CurrentStatus().Running
	st, active := s.sup.SlotStatus(slotID)
	if !active {
		writeJSON(w, http.StatusOK, debugSlotJSON{Running: running, SlotID: slotID, Active: false})
		return
	}

	s.metrics.ObserveSlot(slotID, st.Running, st.AudioFrames, st.RTPPacketsSent, st.MonPacketsSent, 0, 0, st.LastError != "")
	s.metrics.ObserveAudioLevel(slotID, st.PeakDBFS, st.RMSDBFS)

	writeJSON(w, http.StatusOK, debugSlotJSON{
		Running: running,
		SlotID:  slotID,
		Active:  true,
		Status: &slotStatusJSON{
			NDISourceName:   st.NDISourceName,
			AES67StreamName: st.AES67StreamName,
			Mcast:           st.McastIP + ":" + strconv.Itoa(st.McastPort),
			MonitorPort:     st.MonitorPort,
			AudioFrames:     st.AudioFrames,
			RTPPackets:      st.RTPPacketsSent,
			RTPLastError:    st.RTPLastError,
			RTPMonPackets:   st.MonPacketsSent,
			RTPMonLastError: st.MonLastError,
			LastError:       st.LastError,
		},
	})
}

func (s *Server) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	info, err := sysinfo.Collect(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
