package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// Checkpoints use the safetensors layout: an 8-byte little-endian header
// length, a JSON header describing every tensor, then the raw tensor data.

const metadataKey = "__metadata__"

type tensorInfo struct {
	DType   string `json:"dtype"`
	Shape   []int  `json:"shape"`
	Offsets [2]int `json:"data_offsets"`
}

// Checkpoint is a set of named tensors plus free-form string metadata.
type Checkpoint struct {
	Tensors  map[string]*tensor.Tensor
	Metadata map[string]string
}

// Names returns the tensor names in sorted order.
func (c *Checkpoint) Names() []string {
	names := make([]string, 0, len(c.Tensors))
	for name := range c.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func SaveCheckpoint(path string, tensors map[string]*tensor.Tensor, meta map[string]string) error {
	data, err := EncodeCheckpoint(tensors, meta)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EncodeCheckpoint serializes tensors as F64 in sorted name order.
func EncodeCheckpoint(tensors map[string]*tensor.Tensor, meta map[string]string) ([]byte, error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if name == metadataKey {
			return nil, fmt.Errorf("reserved tensor name %q", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(meta) > 0 {
		header[metadataKey] = meta
	}
	offset := 0
	for _, name := range names {
		t := tensors[name]
		size := len(t.Data) * 8
		header[name] = tensorInfo{
			DType:   "F64",
			Shape:   []int{t.Rows, t.Cols},
			Offsets: [2]int{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("marshal checkpoint header: %w", err)
	}

	out := make([]byte, 8+len(headerJSON)+offset)
	binary.LittleEndian.PutUint64(out[:8], uint64(len(headerJSON)))
	copy(out[8:], headerJSON)

	data := out[8+len(headerJSON):]
	pos := 0
	for _, name := range names {
		for _, v := range tensors[name].Data {
			binary.LittleEndian.PutUint64(data[pos:], math.Float64bits(v))
			pos += 8
		}
	}
	return out, nil
}

func LoadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	ckpt, err := DecodeCheckpoint(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ckpt, nil
}

// DecodeCheckpoint parses F64 and F32 tensors. Tensors of any other dtype
// are skipped with a warning.
func DecodeCheckpoint(data []byte) (*Checkpoint, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("checkpoint too short: %d bytes", len(data))
	}
	headerSize := binary.LittleEndian.Uint64(data[:8])
	if headerSize > uint64(len(data)-8) {
		return nil, fmt.Errorf("checkpoint header size %d exceeds %d available bytes", headerSize, len(data)-8)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerSize], &raw); err != nil {
		return nil, fmt.Errorf("parse checkpoint header: %w", err)
	}
	body := data[8+headerSize:]

	ckpt := &Checkpoint{
		Tensors:  make(map[string]*tensor.Tensor, len(raw)),
		Metadata: map[string]string{},
	}
	for name, msg := range raw {
		if name == metadataKey {
			if err := json.Unmarshal(msg, &ckpt.Metadata); err != nil {
				return nil, fmt.Errorf("parse checkpoint metadata: %w", err)
			}
			continue
		}

		var info tensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		t, err := decodeTensor(name, info, body)
		if err != nil {
			return nil, err
		}
		if t != nil {
			ckpt.Tensors[name] = t
		}
	}
	return ckpt, nil
}

func decodeTensor(name string, info tensorInfo, body []byte) (*tensor.Tensor, error) {
	var width int
	switch info.DType {
	case "F64":
		width = 8
	case "F32":
		width = 4
	default:
		log.Printf("checkpoint: skipping tensor %s with unsupported dtype %s", name, info.DType)
		return nil, nil
	}

	var rows, cols int
	switch len(info.Shape) {
	case 1:
		rows, cols = 1, info.Shape[0]
	case 2:
		rows, cols = info.Shape[0], info.Shape[1]
	default:
		return nil, fmt.Errorf("%w: tensor %s has rank %d", dynamo.ErrShapeMismatch, name, len(info.Shape))
	}

	start, end := info.Offsets[0], info.Offsets[1]
	n := rows * cols
	if rows < 0 || cols < 0 || start < 0 || end > len(body) || end-start != n*width {
		return nil, fmt.Errorf("%w: tensor %s offsets [%d,%d) do not hold %dx%d %s values",
			dynamo.ErrShapeMismatch, name, start, end, rows, cols, info.DType)
	}

	t := tensor.New(rows, cols)
	src := body[start:end]
	for i := range t.Data {
		if width == 8 {
			t.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
		} else {
			t.Data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:])))
		}
	}
	return t, nil
}
