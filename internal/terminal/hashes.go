package terminal

import (
	"context"
	"fmt"

	"github.com/quantrelay/termsync/internal/hashing"
)

// GetHashes returns the canonical content digests used to negotiate
// incremental synchronization. The snapshot hashed is the most recently
// updated sibling of the instance's slot, so redundant connections to the
// same terminal converge on identical hash input. Digests are cached on the
// snapshot until the underlying dataset mutates.
//
// A fetch failure from the ignored-fields descriptor is returned to the
// caller; hashing against the wrong field set would silently desynchronize.
func (s *State) GetHashes(ctx context.Context, accountType hashing.AccountType, instanceIndex string) (hashing.Hashes, error) {
	fields, err := s.fields.IgnoredFields(ctx)
	if err != nil {
		return hashing.Hashes{}, fmt.Errorf("resolve hashing ignored fields: %w", err)
	}
	lists := fields.For(accountType)

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.freshestInSlot(instanceNumberOf(instanceIndex))
	if snap == nil {
		return hashing.Hashes{}, nil
	}

	var hashes hashing.Hashes

	if len(snap.specifications) > 0 {
		if snap.specificationsHash == nil {
			digest, err := s.hash.SpecificationsDigest(accountType, snap.sortedSpecifications(), lists.Specification)
			if err != nil {
				return hashing.Hashes{}, fmt.Errorf("hash specifications: %w", err)
			}
			snap.specificationsHash = &digest
		}
		hashes.Specifications = snap.specificationsHash
	}

	if snap.positionsInitialized {
		if snap.positionsHash == nil {
			digest, err := s.hash.PositionsDigest(accountType, snap.sortedPositions(), lists.Position)
			if err != nil {
				return hashing.Hashes{}, fmt.Errorf("hash positions: %w", err)
			}
			snap.positionsHash = &digest
		}
		hashes.Positions = snap.positionsHash
	}

	if snap.ordersInitialized {
		if snap.ordersHash == nil {
			digest, err := s.hash.OrdersDigest(accountType, snap.sortedOrders(), lists.Order)
			if err != nil {
				return hashing.Hashes{}, fmt.Errorf("hash orders: %w", err)
			}
			snap.ordersHash = &digest
		}
		hashes.Orders = snap.ordersHash
	}

	return hashes, nil
}

// freshestInSlot picks the most recently updated snapshot sharing an
// instance number, nil when the slot is empty.
func (s *State) freshestInSlot(instanceNumber string) *snapshot {
	var freshest *snapshot
	for _, snap := range s.store.all() {
		if snap.instanceNumber != instanceNumber {
			continue
		}
		if freshest == nil || snap.lastUpdateTime.After(freshest.lastUpdateTime) {
			freshest = snap
		}
	}
	return freshest
}
