package coordinator

import (
	"sort"
	"time"

	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/task"
)

// claim records one subsystem's in-progress hold over a work item.
type claim struct {
	Holder    string
	Priority  task.Priority
	ClaimedAt time.Time
}

// Resolution describes how a double claim was settled: the winner keeps
// the item, the losers are released for requeuing.
type Resolution struct {
	ItemID string
	Winner string
	Losers []string
}

// RecordClaim registers a subsystem's in-progress claim over a work item.
// Multiple claims over one item are legal to record; DetectConflicts
// settles them.
func (c *Coordinator) RecordClaim(itemID, holder string, priority task.Priority) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claims[itemID] == nil {
		c.claims[itemID] = make(map[string]*claim)
	}
	if _, ok := c.claims[itemID][holder]; ok {
		return
	}
	c.claims[itemID][holder] = &claim{
		Holder:    holder,
		Priority:  priority,
		ClaimedAt: c.now(),
	}
}

// ReleaseClaim drops a holder's claim over the item. Dropping the last
// claim removes the item from conflict tracking entirely.
func (c *Coordinator) ReleaseClaim(itemID, holder string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	holders, ok := c.claims[itemID]
	if !ok {
		return
	}
	delete(holders, holder)
	if len(holders) == 0 {
		delete(c.claims, itemID)
	}
}

// DetectConflicts scans for work items claimed in-progress by more than
// one holder and resolves each in favor of the higher-priority claim,
// with ties broken by the earlier claim. Losing claims are dropped and
// reported so the caller can requeue the work. The detector is the only
// authority permitted to revoke a claim.
func (c *Coordinator) DetectConflicts() []Resolution {
	c.mu.Lock()
	defer c.mu.Unlock()

	var resolutions []Resolution
	for itemID, holders := range c.claims {
		if len(holders) < 2 {
			continue
		}

		contenders := make([]*claim, 0, len(holders))
		for _, cl := range holders {
			contenders = append(contenders, cl)
		}
		sort.Slice(contenders, func(i, j int) bool {
			if contenders[i].Priority != contenders[j].Priority {
				return contenders[i].Priority > contenders[j].Priority
			}
			if !contenders[i].ClaimedAt.Equal(contenders[j].ClaimedAt) {
				return contenders[i].ClaimedAt.Before(contenders[j].ClaimedAt)
			}
			return contenders[i].Holder < contenders[j].Holder
		})

		winner := contenders[0]
		losers := make([]string, 0, len(contenders)-1)
		for _, cl := range contenders[1:] {
			losers = append(losers, cl.Holder)
			delete(holders, cl.Holder)
			c.publish(event.NewConflictResolvedEvent(itemID, winner.Holder, cl.Holder))
			c.logger.WithItem(itemID).Warn("resolved double claim",
				"winner", winner.Holder, "loser", cl.Holder)
		}

		resolutions = append(resolutions, Resolution{
			ItemID: itemID,
			Winner: winner.Holder,
			Losers: losers,
		})
	}

	sort.Slice(resolutions, func(i, j int) bool {
		return resolutions[i].ItemID < resolutions[j].ItemID
	})
	return resolutions
}

// ClaimHolders returns the holders currently claiming the item, ordered
// by name. Empty when the item is unclaimed.
func (c *Coordinator) ClaimHolders(itemID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	holders := make([]string, 0, len(c.claims[itemID]))
	for holder := range c.claims[itemID] {
		holders = append(holders, holder)
	}
	sort.Strings(holders)
	return holders
}
