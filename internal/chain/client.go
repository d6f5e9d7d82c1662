package chain

import (
	"context"
	"fmt"
	"math"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	pbgrpc "github.com/wavesplatform/gowaves/pkg/grpc/generated/waves/events/grpc"
)

// maxRecvMsgSize allows full blocks, which overflow the default 4 MiB limit.
const maxRecvMsgSize = 64 * 1024 * 1024

// Client wraps the node's blockchain-updates gRPC API.
type Client struct {
	conn    *grpc.ClientConn
	api     pbgrpc.BlockchainUpdatesApiClient
	chainID byte
}

// NewClient connects to a node's blockchain-updates extension. The chain id
// selects the address scheme used when deriving transaction senders.
func NewClient(target string, chainID byte) (*Client, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxRecvMsgSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to blockchain updates at %s: %w", target, err)
	}
	return &Client{
		conn:    conn,
		api:     pbgrpc.NewBlockchainUpdatesApiClient(conn),
		chainID: chainID,
	}, nil
}

// Subscribe opens the update stream starting at fromHeight (inclusive). The
// wire field is an int32, so larger heights are rejected rather than
// truncated.
func (c *Client) Subscribe(ctx context.Context, fromHeight uint64) (*Subscription, error) {
	if fromHeight > math.MaxInt32 {
		return nil, fmt.Errorf("starting height %d exceeds the protocol maximum %d", fromHeight, math.MaxInt32)
	}
	stream, err := c.api.Subscribe(ctx, &pbgrpc.SubscribeRequest{FromHeight: int32(fromHeight)})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe from height %d: %w", fromHeight, err)
	}
	return &Subscription{stream: stream, chainID: c.chainID, now: time.Now}, nil
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Subscription is an open blockchain-updates stream.
type Subscription struct {
	stream  pbgrpc.BlockchainUpdatesApi_SubscribeClient
	chainID byte
	now     func() time.Time
}

// Next blocks until the node pushes the next update and decodes it. It
// returns the stream error verbatim once the stream ends, so callers can
// distinguish io.EOF from transport failures.
func (s *Subscription) Next() (Update, error) {
	event, err := s.stream.Recv()
	if err != nil {
		return Update{}, err
	}
	upd := event.GetUpdate()
	if upd == nil {
		return Update{}, fmt.Errorf("subscribe event without update payload")
	}
	return decodeUpdate(upd, s.chainID, s.now)
}
