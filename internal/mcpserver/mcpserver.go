// Package mcpserver exposes the supervisor's control surface as MCP tools,
// mirroring the teacher's own mcp_server.go (same mark3labs/mcp-go server
// and tool-registration shape) but backed by the AES67 supervisor instead
// of SDR session/decoder state.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/streamsquirrel/aes67gateway/internal/supervisor"
)

// Server wraps the supervisor as an MCP tool server.
type Server struct {
	sup        *supervisor.Supervisor
	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

// New builds the MCP server and registers all tools.
func New(sup *supervisor.Supervisor) *Server {
	s := &Server{sup: sup}

	s.mcpServer = server.NewMCPServer(
		"aes67gateway",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	s.httpServer = server.NewStreamableHTTPServer(s.mcpServer)

	return s
}

// Handler returns the HTTP handler serving MCP requests.
func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_sources",
			mcp.WithDescription("List NDI audio sources currently visible on the network. Use this before configure to discover the exact source name a slot should connect to."),
		),
		s.handleListSources,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("configure",
			mcp.WithDescription("Update one slot's NDI source name, AES67 stream name, or multicast destination. Has no effect while the gateway is running; stop it first."),
			mcp.WithNumber("slot_id", mcp.Description("Slot number, 1-4"), mcp.Required()),
			mcp.WithString("ndi_source_name", mcp.Description("Exact NDI source name to connect to")),
			mcp.WithString("aes67_stream_name", mcp.Description("Stream name advertised in the SDP session")),
			mcp.WithString("mcast_ip", mcp.Description("Destination multicast IP for the RTP flow")),
			mcp.WithNumber("mcast_port", mcp.Description("Destination multicast port for the RTP flow")),
		),
		s.handleConfigure,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("start",
			mcp.WithDescription("Start the gateway: connect every configured slot's NDI source and begin sending AES67 RTP and SAP announcements. Fails atomically if any slot cannot connect."),
		),
		s.handleStart,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("stop",
			mcp.WithDescription("Stop the gateway: withdraw all SAP announcements and disconnect every slot."),
		),
		s.handleStop,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("status",
			mcp.WithDescription("Get overall running state plus per-slot audio frame/packet counters and last error, if any."),
		),
		s.handleStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("slot_sdp",
			mcp.WithDescription("Get the SDP text describing one slot's AES67 flow, the same file a Dante/AES67 receiver would import."),
			mcp.WithNumber("slot_id", mcp.Description("Slot number, 1-4"), mcp.Required()),
			mcp.WithBoolean("monitor", mcp.Description("Return the lower-fidelity monitor flow's SDP instead of the main flow's"), mcp.DefaultBool(false)),
		),
		s.handleSlotSDP,
	)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleListSources(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := supervisor.ListSources(250)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list sources: %v", err)), nil
	}
	return jsonResult(map[string]any{"sources": names})
}

func (s *Server) handleConfigure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slotID := int(request.GetFloat("slot_id", 0))
	if slotID == 0 {
		return mcp.NewToolResultError("slot_id is required"), nil
	}
	if s.sup.CurrentStatus().Running {
		return mcp.NewToolResultError("gateway is running; stop it before reconfiguring slots"), nil
	}

	cfg := s.sup.Config()
	found := false
	for i, sc := range cfg.Slots {
		if sc.SlotID != slotID {
			continue
		}
		found = true
		if v := request.GetString("ndi_source_name", ""); v != "" {
			cfg.Slots[i].NDISourceName = v
		}
		if v := request.GetString("aes67_stream_name", ""); v != "" {
			cfg.Slots[i].AES67StreamName = v
		}
		if v := request.GetString("mcast_ip", ""); v != "" {
			cfg.Slots[i].McastIP = v
		}
		if v := int(request.GetFloat("mcast_port", 0)); v != 0 {
			cfg.Slots[i].McastPort = v
		}
		break
	}
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("no slot with slot_id %d", slotID)), nil
	}
	return jsonResult(map[string]any{"slots": cfg.Slots})
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.sup.Start(ctx)
	return jsonResult(st)
}

func (s *Server) handleStop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.sup.Stop()
	return jsonResult(st)
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]any{
		"overall": s.sup.CurrentStatus(),
		"slots":   s.sup.AllStatuses(),
	})
}

func (s *Server) handleSlotSDP(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slotID := int(request.GetFloat("slot_id", 0))
	monitor := request.GetBool("monitor", false)

	var sdp string
	var ok bool
	if monitor {
		sdp, ok = s.sup.SlotMonitorSDP(slotID)
	} else {
		sdp, ok = s.sup.SlotSDP(slotID)
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no SDP available for slot %d (gateway not running or slot unknown)", slotID)), nil
	}
	return mcp.NewToolResultText(sdp), nil
}
