package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pyenvctl/internal/config"
	"pyenvctl/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server wraps the MCP protocol layer around a Service.
type Server struct {
	service *Service
	mcp     *server.MCPServer
	sse     *server.SSEServer
}

// NewServer builds the MCP server and registers all tools.
func NewServer(cfg config.Config, version string) *Server {
	s := &Server{service: NewService(cfg, nil)}

	s.mcp = server.NewMCPServer(
		"pyenvctl",
		version,
		server.WithToolCapabilities(true),
	)
	s.mcp.AddTools(s.tools()...)
	return s
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	logging.Info(subsystem, "Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// ServeSSE blocks serving MCP over HTTP SSE on host:port.
func (s *Server) ServeSSE(ctx context.Context, host string, port int) error {
	baseURL := fmt.Sprintf("http://%s:%d", host, port)
	s.sse = server.NewSSEServer(
		s.mcp,
		server.WithBaseURL(baseURL),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		logging.Info(subsystem, "Serving MCP over SSE at %s", baseURL)
		if err := s.sse.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.sse.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{
			Tool: mcp.NewTool("env_list",
				mcp.WithDescription("List all discovered Python environments with kind, version and path"),
			),
			Handler: s.handleEnvList,
		},
		{
			Tool: mcp.NewTool("env_refresh",
				mcp.WithDescription("Rescan the system for Python environments"),
			),
			Handler: s.handleEnvRefresh,
		},
		{
			Tool: mcp.NewTool("env_create",
				mcp.WithDescription("Create a new virtualenv under ~/.virtualenvs"),
				mcp.WithString("name",
					mcp.Required(),
					mcp.Description("Name of the environment to create"),
				),
			),
			Handler: s.handleEnvCreate,
		},
		{
			Tool: mcp.NewTool("env_delete",
				mcp.WithDescription("Delete a Python environment"),
				mcp.WithString("path",
					mcp.Required(),
					mcp.Description("Path of the environment to delete"),
				),
			),
			Handler: s.handleEnvDelete,
		},
		{
			Tool: mcp.NewTool("package_list",
				mcp.WithDescription("List installed packages in an environment, or globally when no path is given"),
				mcp.WithString("path",
					mcp.Description("Environment path; omit for the global interpreter"),
				),
			),
			Handler: s.handlePackageList,
		},
		{
			Tool: mcp.NewTool("package_install",
				mcp.WithDescription("Install a package with pip"),
				mcp.WithString("package",
					mcp.Required(),
					mcp.Description("Package specifier to install"),
				),
				mcp.WithString("path",
					mcp.Description("Environment path; omit for the global interpreter"),
				),
			),
			Handler: s.handlePackageInstall,
		},
		{
			Tool: mcp.NewTool("package_remove",
				mcp.WithDescription("Uninstall a package with pip"),
				mcp.WithString("package",
					mcp.Required(),
					mcp.Description("Package to uninstall"),
				),
				mcp.WithString("path",
					mcp.Description("Environment path; omit for the global interpreter"),
				),
			),
			Handler: s.handlePackageRemove,
		},
	}
}

// stringArg pulls one string argument out of the request.
func stringArg(req mcp.CallToolRequest, name string) string {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	v, _ := args[name].(string)
	return v
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleEnvList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	envs, err := s.service.ListEnvironments(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list environments: %v", err)), nil
	}
	return jsonResult(envs)
}

func (s *Server) handleEnvRefresh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	envs, err := s.service.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}
	return jsonResult(envs)
}

func (s *Server) handleEnvCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := stringArg(req, "name")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	env, err := s.service.CreateEnvironment(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Create failed: %v", err)), nil
	}
	return jsonResult(env)
}

func (s *Server) handleEnvDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := stringArg(req, "path")
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}
	if err := s.service.DeleteEnvironment(ctx, path); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Delete failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", path)), nil
}

func (s *Server) handlePackageList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkgs, err := s.service.ListPackages(ctx, stringArg(req, "path"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list packages: %v", err)), nil
	}
	return jsonResult(pkgs)
}

func (s *Server) handlePackageInstall(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkg := stringArg(req, "package")
	if pkg == "" {
		return mcp.NewToolResultError("package is required"), nil
	}
	if err := s.service.InstallPackage(ctx, stringArg(req, "path"), pkg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Install failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Installed %s", pkg)), nil
}

func (s *Server) handlePackageRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkg := stringArg(req, "package")
	if pkg == "" {
		return mcp.NewToolResultError("package is required"), nil
	}
	if err := s.service.RemovePackage(ctx, stringArg(req, "path"), pkg); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Remove failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s", pkg)), nil
}
