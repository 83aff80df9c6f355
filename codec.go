package persistent

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Stored nodes are framed as protobuf wire data so any protobuf
// implementation can decode the envelope; keys and values inside it are
// opaque bytes produced by the map's configured Marshal function.
const (
	fieldKey   = protowire.Number(1)
	fieldValue = protowire.Number(2)
	fieldSize  = protowire.Number(3)
	fieldLeft  = protowire.Number(4)
	fieldRight = protowire.Number(5)
)

// wireNode is the decoded form of one stored node. Left and Right are the
// content addresses of the child subtrees, empty for absent children.
type wireNode struct {
	Key   []byte
	Value []byte
	Size  uint64
	Left  string
	Right string
}

func marshalNode(n *node, leftLink, rightLink string, marshal func(interface{}) ([]byte, error)) ([]byte, error) {
	keyBytes, err := marshal(n.key)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	valueBytes, err := marshal(n.value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	var buf []byte
	buf = protowire.AppendTag(buf, fieldKey, protowire.BytesType)
	buf = protowire.AppendBytes(buf, keyBytes)
	buf = protowire.AppendTag(buf, fieldValue, protowire.BytesType)
	buf = protowire.AppendBytes(buf, valueBytes)
	buf = protowire.AppendTag(buf, fieldSize, protowire.VarintType)
	buf = protowire.AppendVarint(buf, n.size)
	if leftLink != "" {
		buf = protowire.AppendTag(buf, fieldLeft, protowire.BytesType)
		buf = protowire.AppendString(buf, leftLink)
	}
	if rightLink != "" {
		buf = protowire.AppendTag(buf, fieldRight, protowire.BytesType)
		buf = protowire.AppendString(buf, rightLink)
	}
	return buf, nil
}

func unmarshalNode(buf []byte) (*wireNode, error) {
	var w wireNode
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]
		switch num {
		case fieldKey, fieldValue, fieldLeft, fieldRight:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, fmt.Errorf("consume field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
			switch num {
			case fieldKey:
				w.Key = v
			case fieldValue:
				w.Value = v
			case fieldLeft:
				w.Left = string(v)
			case fieldRight:
				w.Right = string(v)
			}
		case fieldSize:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, fmt.Errorf("consume size: %w", protowire.ParseError(n))
			}
			buf = buf[n:]
			w.Size = v
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, fmt.Errorf("consume field %d: %w", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}
	if w.Key == nil {
		return nil, fmt.Errorf("stored node has no key")
	}
	return &w, nil
}
