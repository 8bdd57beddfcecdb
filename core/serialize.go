// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain records. Timestamps are encoded as Unix
// microseconds; vectors and string lists carry a varint length prefix.
var (
	IDMUS       = idMUS{}
	DocumentMUS = documentMUS{}
	ChunkMUS    = chunkMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (id ID, n int, err error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) (size int) {
	return varint.Uint64.Size(uint64(id))
}

type documentMUS struct{}

func (s documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(d.Id), bs)
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Body, bs[n:])
	n += ord.String.Marshal(d.Source, bs[n:])
	n += ord.String.Marshal(d.Link, bs[n:])
	n += marshalTime(d.PublishedAt, bs[n:])
	n += marshalTime(d.IngestedAt, bs[n:])
	n += marshalTime(d.UpdatedAt, bs[n:])
	n += ord.String.Marshal(d.Summary, bs[n:])
	n += marshalStrings(d.Entities, bs[n:])
	n += marshalStrings(d.Keywords, bs[n:])
	n += ord.String.Marshal(d.Category, bs[n:])
	return n
}

func (s documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var (
		id uint64
		m  int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	d.Id = ID(id)
	if d.Title, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Body, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Source, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Link, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if d.PublishedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if d.IngestedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if d.UpdatedAt, m, err = unmarshalTime(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Summary, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Entities, m, err = unmarshalStrings(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Keywords, m, err = unmarshalStrings(bs[n:]); err != nil {
		return
	}
	n += m
	if d.Category, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (s documentMUS) Size(d Document) (size int) {
	size = varint.Uint64.Size(uint64(d.Id))
	size += ord.String.Size(d.Title)
	size += ord.String.Size(d.Body)
	size += ord.String.Size(d.Source)
	size += ord.String.Size(d.Link)
	size += sizeTime(d.PublishedAt)
	size += sizeTime(d.IngestedAt)
	size += sizeTime(d.UpdatedAt)
	size += ord.String.Size(d.Summary)
	size += sizeStrings(d.Entities)
	size += sizeStrings(d.Keywords)
	size += ord.String.Size(d.Category)
	return size
}

type chunkMUS struct{}

func (s chunkMUS) Marshal(c Chunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(c.Id), bs)
	n += varint.Uint64.Marshal(uint64(c.DocumentId), bs[n:])
	n += varint.Int.Marshal(c.Seq, bs[n:])
	n += ord.String.Marshal(c.Text, bs[n:])
	n += MarshalVector(c.Vector, bs[n:])
	return n
}

func (s chunkMUS) Unmarshal(bs []byte) (c Chunk, n int, err error) {
	var (
		id uint64
		m  int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	c.Id = ID(id)
	if id, m, err = varint.Uint64.Unmarshal(bs[n:]); err != nil {
		return
	}
	c.DocumentId = ID(id)
	n += m
	if c.Seq, m, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if c.Text, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return
	}
	n += m
	if c.Vector, m, err = UnmarshalVector(bs[n:]); err != nil {
		return
	}
	n += m
	return
}

func (s chunkMUS) Size(c Chunk) (size int) {
	size = varint.Uint64.Size(uint64(c.Id))
	size += varint.Uint64.Size(uint64(c.DocumentId))
	size += varint.Int.Size(c.Seq)
	size += ord.String.Size(c.Text)
	size += SizeVector(c.Vector)
	return size
}

// MarshalVector encodes a float32 slice with a varint length prefix.
func MarshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += varint.Float32.Marshal(f, bs[n:])
	}
	return n
}

// UnmarshalVector decodes a float32 slice written by MarshalVector.
func UnmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]float32, length)
	var m int
	for i := 0; i < length; i++ {
		if v[i], m, err = varint.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
	}
	return v, n, nil
}

// SizeVector returns the encoded size of a float32 slice.
func SizeVector(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += varint.Float32.Size(f)
	}
	return size
}

func marshalStrings(ss []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(ss), bs)
	for _, s := range ss {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (ss []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	ss = make([]string, length)
	var m int
	for i := 0; i < length; i++ {
		if ss[i], m, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n, err
		}
		n += m
	}
	return ss, n, nil
}

func sizeStrings(ss []string) (size int) {
	size = varint.Int.Size(len(ss))
	for _, s := range ss {
		size += ord.String.Size(s)
	}
	return size
}

func marshalTime(t time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(t.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (t time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) (size int) {
	return varint.Int64.Size(t.UnixMicro())
}
