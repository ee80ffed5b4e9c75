// Package transport connects the synchronization engine to the gateway's
// streaming API. It dials the account event stream, decodes frames, and
// dispatches them onto an EventListener.
package transport

import (
	"github.com/quantrelay/termsync/internal/schema"
)

// EventListener receives decoded gateway events for one trading account.
// Instance indexes are composite "<instanceNumber>:<host>" identifiers.
// terminal.State satisfies this interface.
type EventListener interface {
	OnConnected(instanceIndex string, replicas int)
	OnDisconnected(instanceIndex string)
	OnBrokerConnectionStatusChanged(instanceIndex string, connected bool)
	OnSynchronizationStarted(instanceIndex string, specificationsUpdated, positionsUpdated, ordersUpdated bool, synchronizationID string)
	OnPositionsSynchronized(instanceIndex, synchronizationID string)
	OnPendingOrdersSynchronized(instanceIndex, synchronizationID string)
	OnStreamClosed(instanceIndex string)
	OnAccountInformationUpdated(instanceIndex string, info *schema.AccountInformation)
	OnPositionsReplaced(instanceIndex string, positions []*schema.Position)
	OnPositionUpdated(instanceIndex string, position *schema.Position)
	OnPositionRemoved(instanceIndex, positionID string)
	OnPendingOrdersReplaced(instanceIndex string, orders []*schema.Order)
	OnPendingOrderUpdated(instanceIndex string, order *schema.Order)
	OnPendingOrderCompleted(instanceIndex, orderID string)
	OnSymbolSpecificationsUpdated(instanceIndex string, updated []*schema.Specification, removedSymbols []string)
	OnSymbolPricesUpdated(instanceIndex string, prices []*schema.Price, metrics *schema.AccountMetrics)
}
