// Package series implements the uniformly-allocated series node described
// in spec.md §3.2, and the array/string/symbol-table operations layered
// on top of it (spec.md §4.2). Every series, array, string, binary,
// varlist, keylist, paramlist, is one Node drawn from a single pool
// (internal/pool), so the GC sweep (internal/gc) can walk one table and
// distinguish free vs. live nodes by Node.width, exactly as spec.md §4.1
// specifies.
package series

import "ion/internal/cell"

// Role records which specialized meaning a series' link/misc words carry,
// mirroring spec.md §3.2's "role flags (paramlist, varlist, pairlist)".
type Role uint8

const (
	RoleGeneric Role = iota
	RoleVarlist
	RoleKeylist
	RoleParamlist
	RolePairlist
	RoleBodyHolder
)

// Flags is the series node header: array?, utf8-string?, fixed-size?,
// power-of-2-alloc?, has-dynamic-data?, plus the role (spec.md §3.2).
type Flags uint32

const (
	FlagArray Flags = 1 << iota
	FlagUTF8String
	FlagFixedSize
	FlagPowerOf2Alloc
	FlagHasDynamic
	FlagManaged
)

// Info is the secondary flags word: frozen, protected, hold,
// inaccessible, shared-keylist, context-on-stack (spec.md §3.2).
type Info uint32

const (
	InfoFrozen Info = 1 << iota
	InfoProtected
	InfoHold
	InfoInaccessible
	InfoSharedKeylist
	InfoContextOnStack
)

// dynamicData is the out-of-line buffer a series owns once it outgrows
// (or is created past) the single-embedded-cell optimization. bias and
// rest implement spec.md §3.2's "(bias + rest) * width bytes" buffer and
// §4.2's head/tail growth rules.
type dynamicData struct {
	cells  []cell.Cell // backing storage when Flags&FlagArray != 0
	bytes  []byte      // backing storage otherwise (string!/binary!)
	bias   int         // live head offset; head insert decrements, head removal increments
	length int         // live element count, not counting the array terminator
}

// MaxBias is the head-insertion budget before a head operation is forced
// to reallocate and reset bias to 0 (spec.md §4.2, §8 "Bias bounded").
const MaxBias = 4096

// Node is the uniform two-cell-budget series node. Freed nodes have
// width 0 (pool.Slot contract) and thread the freelist through their
// separate nextFree field, not through link.
type Node struct {
	flags Flags
	info  Info
	role  Role
	width uint8 // element width in bytes, 1..255; 0 = freed

	embedded    cell.Cell // used when !FlagHasDynamic and length <= 1
	hasEmbedded bool      // true once embedded holds index-0 value (length 1)

	dyn *dynamicData

	link uint64 // role-dependent: keylist ref / canon back-ref / cleanup id
	misc uint64 // role-dependent: meta-context / dispatcher id / hashlist ref

	nextFree uint32 // freelist thread (pool.Slot)
	marked   bool   // transient GC mark bit, cleared by the sweep phase (spec.md §4.3)
}

// Marked / SetMarked implement the series-node mark bit internal/gc's
// mark phase sets and its sweep phase clears (spec.md §4.3: "set the
// mark bit... any series with the managed bit and without the mark bit
// is freed... unmark everything").
func (n *Node) Marked() bool     { return n.marked }
func (n *Node) SetMarked(v bool) { n.marked = v }

// LinkIsRef / MiscIsRef report whether this node's role-dependent link
// and misc words hold another series' Ref bits, for internal/gc's mark
// phase to follow (spec.md §4.3: "keylist in link, misc sub-references").
// Roles that use link/misc for something other than a series reference
// (a plain symbol id, a dispatcher id) report false so the sweep never
// mistakes an unrelated bit pattern for a live handle.
func (n *Node) LinkIsRef() bool {
	switch n.role {
	case RoleVarlist, RoleParamlist:
		return true
	default:
		return false
	}
}

func (n *Node) MiscIsRef() bool {
	switch n.role {
	case RoleVarlist:
		return true
	default:
		return false
	}
}

// --- pool.Slot -----------------------------------------------------

func (n *Node) Reset() {
	*n = Node{}
}

func (n *Node) IsFree() bool { return n.width == 0 }

func (n *Node) NextFree() uint32     { return n.nextFree }
func (n *Node) SetNextFree(v uint32) { n.nextFree = v }

// --- accessors used across the package and by internal/gc ----------

func (n *Node) IsArray() bool    { return n.flags&FlagArray != 0 }
func (n *Node) IsManaged() bool  { return n.flags&FlagManaged != 0 }
func (n *Node) IsFrozen() bool   { return n.info&InfoFrozen != 0 }
func (n *Node) IsProtected() bool { return n.info&InfoProtected != 0 || n.IsFrozen() }
func (n *Node) IsHeld() bool     { return n.info&InfoHold != 0 }
func (n *Node) IsInaccessible() bool { return n.info&InfoInaccessible != 0 }
func (n *Node) Role() Role       { return n.role }
func (n *Node) Width() uint8     { return n.width }

// Len returns the live element count.
func (n *Node) Len() int {
	if n.dyn != nil {
		return n.dyn.length
	}
	if n.hasEmbedded {
		return 1
	}
	return 0
}

// Link/Misc expose the role-dependent words to internal/ctx, internal/fn
// and internal/gc (which must follow them during mark).
func (n *Node) Link() uint64        { return n.link }
func (n *Node) SetLink(v uint64)    { n.link = v }
func (n *Node) Misc() uint64        { return n.misc }
func (n *Node) SetMisc(v uint64)    { n.misc = v }
func (n *Node) SetRole(r Role)      { n.role = r }
func (n *Node) MarkInaccessible()   { n.info |= InfoInaccessible }
func (n *Node) MarkFrozen()         { n.info |= InfoFrozen }
func (n *Node) MarkProtected()      { n.info |= InfoProtected }
func (n *Node) SetHold(v bool) {
	if v {
		n.info |= InfoHold
	} else {
		n.info &^= InfoHold
	}
}
func (n *Node) SetContextOnStack() { n.info |= InfoContextOnStack }
func (n *Node) IsContextOnStack() bool { return n.info&InfoContextOnStack != 0 }
func (n *Node) SetSharedKeylist(v bool) {
	if v {
		n.info |= InfoSharedKeylist
	} else {
		n.info &^= InfoSharedKeylist
	}
}
func (n *Node) IsSharedKeylist() bool { return n.info&InfoSharedKeylist != 0 }
