package catalog

import (
	"sync"
)

// Cache holds known products keyed by id.
type Cache struct {
	mu       sync.RWMutex
	products map[string]FoodProduct
	onChange func(map[string]FoodProduct)
}

func NewCache() *Cache {
	return &Cache{products: make(map[string]FoodProduct)}
}

// OnChange registers fn to receive a copy of the cache after each write.
func (c *Cache) OnChange(fn func(map[string]FoodProduct)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Cache) Get(id string) (FoodProduct, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return FoodProduct{}, false
	}
	return p.clone(), true
}

func (c *Cache) Put(p FoodProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p.clone()
	c.changed()
}

func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return false
	}
	delete(c.products, id)
	c.changed()
	return true
}

func (c *Cache) All() map[string]FoodProduct {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked()
}

// Replace swaps the whole cache, used when loading from storage or importing.
func (c *Cache) Replace(products map[string]FoodProduct) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make(map[string]FoodProduct, len(products))
	for id, p := range products {
		if p.ID == "" {
			p.ID = id
		}
		c.products[id] = p.clone()
	}
	c.changed()
}

func (c *Cache) copyLocked() map[string]FoodProduct {
	out := make(map[string]FoodProduct, len(c.products))
	for id, p := range c.products {
		out[id] = p.clone()
	}
	return out
}

func (c *Cache) changed() {
	if c.onChange != nil {
		c.onChange(c.copyLocked())
	}
}
