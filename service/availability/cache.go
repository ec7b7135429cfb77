// service/availability/cache.go
//
// Process-wide denormalized view of the store: copy counts per title
// plus the uniqueness sets for barcodes, usernames and emails. The
// lifecycle services own all writes; everything else reads.
package availability

import (
	"context"
	"sync"

	itemrepo "libraryrental/repository/item"
	userrepo "libraryrental/repository/user"
	"libraryrental/util/apperr"
)

type ItemSource interface {
	ScanItems(ctx context.Context) ([]itemrepo.CacheItem, error)
}

type UserSource interface {
	ScanUsers(ctx context.Context) ([]userrepo.CacheUser, error)
}

type Cache struct {
	mu        sync.Mutex
	stored    map[string]int
	available map[string]int
	barcodes  map[string]struct{}
	usernames map[string]struct{}
	emails    map[string]struct{}
}

func NewCache() *Cache {
	c := &Cache{}
	c.reset()
	return c
}

func (c *Cache) reset() {
	c.stored = make(map[string]int)
	c.available = make(map[string]int)
	c.barcodes = make(map[string]struct{})
	c.usernames = make(map[string]struct{})
	c.emails = make(map[string]struct{})
}

// Initialize clears everything and rebuilds from one full scan of the
// store. Safe to call again for a resync; concurrent lifecycle calls
// must be quiesced by the caller first.
func (c *Cache) Initialize(ctx context.Context, items ItemSource, users UserSource) error {
	its, err := items.ScanItems(ctx)
	if err != nil {
		return err
	}
	us, err := users.ScanUsers(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	for _, it := range its {
		c.stored[it.Title]++
		if _, ok := c.available[it.Title]; !ok {
			c.available[it.Title] = 0
		}
		if it.Available {
			c.available[it.Title]++
		}
		c.barcodes[it.Barcode] = struct{}{}
	}
	for _, u := range us {
		c.usernames[u.Username] = struct{}{}
		c.emails[u.Email] = struct{}{}
	}
	return nil
}

func (c *Cache) OnItemCreated(title, barcode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.barcodes[barcode]; taken {
		return apperr.Newf(apperr.KindDuplicateBarcode, "barcode %s is already registered", barcode)
	}
	c.barcodes[barcode] = struct{}{}
	c.stored[title]++
	c.available[title]++
	return nil
}

// OnRentalCreated decrements the available count. A count that would
// go negative means the store and the cache disagree; that is an
// internal bug, not a user error.
func (c *Cache) OnRentalCreated(title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available[title] <= 0 {
		return apperr.Newf(apperr.KindConsistency, "available count for %q would drop below zero", title)
	}
	c.available[title]--
	return nil
}

// OnRentalClosed increments the available count, capped at the stored
// count. The key stays present at zero.
func (c *Cache) OnRentalClosed(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available[title] < c.stored[title] {
		c.available[title]++
	}
}

func (c *Cache) OnItemHardDeleted(title, barcode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.barcodes, barcode)
	if c.stored[title] <= 1 {
		delete(c.stored, title)
		delete(c.available, title)
		return
	}
	c.stored[title]--
	if c.available[title] > c.stored[title] {
		c.available[title] = c.stored[title]
	}
}

func (c *Cache) OnUserCreated(username, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.usernames[username]; taken {
		return apperr.Newf(apperr.KindDuplicateUsername, "username %s is already taken", username)
	}
	if _, taken := c.emails[email]; taken {
		return apperr.Newf(apperr.KindDuplicateEmail, "email %s is already registered", email)
	}
	c.usernames[username] = struct{}{}
	c.emails[email] = struct{}{}
	return nil
}

func (c *Cache) OnUserHardDeleted(username, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.usernames, username)
	delete(c.emails, email)
}

func (c *Cache) AvailableCount(title string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available[title]
}

func (c *Cache) StoredCount(title string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stored[title]
}

func (c *Cache) BarcodeTaken(barcode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.barcodes[barcode]
	return ok
}

func (c *Cache) UsernameTaken(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.usernames[username]
	return ok
}

func (c *Cache) EmailTaken(email string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.emails[email]
	return ok
}
