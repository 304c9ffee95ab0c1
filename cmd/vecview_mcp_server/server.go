package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/vecview"

	mcpE "github.com/flarexio/vecview/mcp"
)

type StdioMCPServer interface {
	AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error
	Listen(ctx context.Context) error
}

func NewStdioMCPServer(in io.Reader, out io.Writer) StdioMCPServer {
	return &stdioMCPServer{
		in:        in,
		out:       out,
		endpoints: make(map[mcp.MCPMethod]mcpE.MCPEndpoint),
	}
}

type stdioMCPServer struct {
	in        io.Reader
	out       io.Writer
	endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint
}

func (s *stdioMCPServer) Listen(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lines := make(chan string)
	errs := make(chan error, 1)

	go func(ctx context.Context, lines chan<- string, errs chan<- error) {
		defer close(lines)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}(ctx, lines, errs)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-errs:
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err

		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if line == "" {
				continue
			}

			resp := s.handle(ctx, []byte(line))
			if resp == nil {
				continue
			}

			bs, err := json.Marshal(resp)
			if err != nil {
				continue
			}

			fmt.Fprintf(s.out, "%s\n", bs)
		}
	}
}

// handle returns nil for notifications, which get no response.
func (s *stdioMCPServer) handle(ctx context.Context, line []byte) mcp.JSONRPCMessage {
	var req mcpE.JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return mcpE.ErrorResponse(mcp.NewRequestId(nil), mcp.PARSE_ERROR, err.Error())
	}

	if req.ID.IsNil() {
		return nil
	}

	endpoint, ok := s.endpoints[req.Method]
	if !ok {
		return mcpE.ErrorResponse(req.ID, mcp.METHOD_NOT_FOUND, "method not found")
	}

	ctx = context.WithValue(ctx, vecview.RequestID, uuid.NewString())
	return endpoint(ctx, req)
}

func (srv *stdioMCPServer) AddEndpoint(method mcp.MCPMethod, endpoint mcpE.MCPEndpoint) error {
	_, ok := srv.endpoints[method]
	if ok {
		return errors.New("endpoint already exists")
	}

	srv.endpoints[method] = endpoint
	return nil
}
