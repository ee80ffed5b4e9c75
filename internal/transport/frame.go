package transport

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/quantrelay/termsync/errs"
	"github.com/quantrelay/termsync/internal/schema"
)

// Frame event types carried on the stream.
const (
	frameAuthenticated      = "authenticated"
	frameDisconnected       = "disconnected"
	frameBrokerStatus       = "brokerConnectionStatus"
	frameSyncStarted        = "synchronizationStarted"
	frameAccountInformation = "accountInformation"
	framePositions          = "positions"
	framePositionsSynced    = "positionsSynchronized"
	framePositionUpdated    = "positionUpdated"
	framePositionRemoved    = "positionRemoved"
	frameOrders             = "orders"
	frameOrdersSynced       = "ordersSynchronized"
	frameOrderUpdated       = "orderUpdated"
	frameOrderCompleted     = "orderCompleted"
	frameSpecifications     = "specifications"
	framePrices             = "prices"
	frameStreamClosed       = "streamClosed"
)

// Frame is one decoded event from the account stream. Which payload fields
// are populated depends on Type.
type Frame struct {
	Type          string `json:"type"`
	AccountID     string `json:"accountId"`
	InstanceIndex int    `json:"instanceIndex"`
	Host          string `json:"host"`

	Replicas          int    `json:"replicas,omitempty"`
	Connected         *bool  `json:"connected,omitempty"`
	SynchronizationID string `json:"synchronizationId,omitempty"`

	SpecificationsUpdated *bool `json:"specificationsUpdated,omitempty"`
	PositionsUpdated      *bool `json:"positionsUpdated,omitempty"`
	OrdersUpdated         *bool `json:"ordersUpdated,omitempty"`

	AccountInformation *schema.AccountInformation `json:"accountInformation,omitempty"`
	Positions          []*schema.Position         `json:"positions,omitempty"`
	Position           *schema.Position           `json:"position,omitempty"`
	PositionID         string                     `json:"positionId,omitempty"`
	Orders             []*schema.Order            `json:"orders,omitempty"`
	Order              *schema.Order              `json:"order,omitempty"`
	OrderID            string                     `json:"orderId,omitempty"`
	Specifications     []*schema.Specification    `json:"specifications,omitempty"`
	RemovedSymbols     []string                   `json:"removedSymbols,omitempty"`
	Prices             []*schema.Price            `json:"prices,omitempty"`
	Metrics            *schema.AccountMetrics     `json:"accountMetrics,omitempty"`
}

// Index returns the composite instance identifier the engine keys snapshots by.
func (f *Frame) Index() string {
	return fmt.Sprintf("%d:%s", f.InstanceIndex, f.Host)
}

// decodeFrame parses a raw stream message.
func decodeFrame(data []byte) (*Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("decode stream frame: %w", err)
	}
	if frame.Type == "" {
		return nil, errs.New("transport/frame", errs.CodeInvalid, errs.WithMessage("stream frame missing type"))
	}
	return &frame, nil
}

// Dispatch routes a decoded frame to the matching listener callback.
// Unknown frame types are an error so new gateway event kinds surface loudly
// instead of being dropped.
func Dispatch(listener EventListener, frame *Frame) error {
	index := frame.Index()
	switch frame.Type {
	case frameAuthenticated:
		listener.OnConnected(index, frame.Replicas)
	case frameDisconnected:
		listener.OnDisconnected(index)
	case frameBrokerStatus:
		listener.OnBrokerConnectionStatusChanged(index, frame.Connected != nil && *frame.Connected)
	case frameSyncStarted:
		listener.OnSynchronizationStarted(index,
			boolFlag(frame.SpecificationsUpdated),
			boolFlag(frame.PositionsUpdated),
			boolFlag(frame.OrdersUpdated),
			frame.SynchronizationID)
	case frameAccountInformation:
		listener.OnAccountInformationUpdated(index, frame.AccountInformation)
	case framePositions:
		listener.OnPositionsReplaced(index, frame.Positions)
	case framePositionsSynced:
		listener.OnPositionsSynchronized(index, frame.SynchronizationID)
	case framePositionUpdated:
		listener.OnPositionUpdated(index, frame.Position)
	case framePositionRemoved:
		listener.OnPositionRemoved(index, frame.PositionID)
	case frameOrders:
		listener.OnPendingOrdersReplaced(index, frame.Orders)
	case frameOrdersSynced:
		listener.OnPendingOrdersSynchronized(index, frame.SynchronizationID)
	case frameOrderUpdated:
		listener.OnPendingOrderUpdated(index, frame.Order)
	case frameOrderCompleted:
		listener.OnPendingOrderCompleted(index, frame.OrderID)
	case frameSpecifications:
		listener.OnSymbolSpecificationsUpdated(index, frame.Specifications, frame.RemovedSymbols)
	case framePrices:
		listener.OnSymbolPricesUpdated(index, frame.Prices, frame.Metrics)
	case frameStreamClosed:
		listener.OnStreamClosed(index)
	default:
		return errs.New("transport/frame", errs.CodeInvalid,
			errs.WithMessage(fmt.Sprintf("unknown stream frame type %q", frame.Type)))
	}
	return nil
}

// Flagged datasets default to a full resynchronization when the gateway omits
// the field.
func boolFlag(v *bool) bool {
	return v == nil || *v
}
