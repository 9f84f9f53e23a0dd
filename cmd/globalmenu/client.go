package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/globalmenu/internal/ipc"
	"github.com/example/globalmenu/internal/protocol"
)

func request(ctx context.Context, endpoint ipc.Endpoint, req protocol.Request) (protocol.Response, error) {
	conn, err := endpoint.DialContext(ctx)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("connect to %s: %w", endpoint, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return protocol.Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.ID != "" && resp.ID != req.ID {
		return protocol.Response{}, fmt.Errorf("response %s does not answer request %s", resp.ID, req.ID)
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}
