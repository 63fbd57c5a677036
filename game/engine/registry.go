package engine

import "encoding/json"

// Registry is the ordered set of blocks in a game session. It is immutable:
// Update returns a new Registry and never touches the receiver's storage.
type Registry struct {
	blocks []Block
}

// NewRegistry builds a registry from blocks, preserving their order.
func NewRegistry(blocks []Block) Registry {
	out := make([]Block, len(blocks))
	copy(out, blocks)
	return Registry{blocks: out}
}

// Lookup returns the block with the given id.
func (r Registry) Lookup(id int) (Block, bool) {
	for _, b := range r.blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Update returns a registry in which the block with the given id has been
// passed through mutate. Only Width, Height and Placed may change; the id
// and color are restored afterwards. Unknown ids return r unchanged.
func (r Registry) Update(id int, mutate func(b *Block)) Registry {
	idx := -1
	for i, b := range r.blocks {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return r
	}

	out := make([]Block, len(r.blocks))
	copy(out, r.blocks)

	orig := out[idx]
	mutate(&out[idx])
	out[idx].ID = orig.ID
	out[idx].Color = orig.Color

	return Registry{blocks: out}
}

// Blocks returns a copy of all blocks in catalog order.
func (r Registry) Blocks() []Block {
	out := make([]Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// Len returns the number of blocks.
func (r Registry) Len() int {
	return len(r.blocks)
}

// MarshalJSON encodes the registry as an array of blocks.
func (r Registry) MarshalJSON() ([]byte, error) {
	if r.blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.blocks)
}

// UnmarshalJSON decodes an array of blocks.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var blocks []Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	r.blocks = blocks
	return nil
}
