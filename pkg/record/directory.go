//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package record

import (
	"sort"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

const DefaultPartitions = 16

type partition struct {
	sync.RWMutex
	records map[string]*Record
}

// Directory is the record list, partitioned by a hash of the record name.
type Directory struct {
	partitions []*partition

	idMu sync.RWMutex
	byID map[uint64]*Field
}

func NewDirectory(numPartitions uint32) *Directory {
	if numPartitions == 0 {
		numPartitions = DefaultPartitions
	}
	d := &Directory{
		partitions: make([]*partition, numPartitions),
		byID:       make(map[uint64]*Field),
	}
	for i := range d.partitions {
		d.partitions[i] = &partition{records: make(map[string]*Record)}
	}
	return d
}

func (d *Directory) getPartition(name string) *partition {
	return d.partitions[murmur3.Sum32([]byte(name))%uint32(len(d.partitions))]
}

// Add makes r and its fields visible. Fields added to r later are not
// indexed by id.
func (d *Directory) Add(r *Record) error {
	p := d.getPartition(r.Name)
	p.Lock()
	if _, dup := p.records[r.Name]; dup {
		p.Unlock()
		return proto.Errorf(proto.StatusIllegalArgument, "record %s already exists", r.Name)
	}
	p.records[r.Name] = r
	p.Unlock()

	d.idMu.Lock()
	for _, f := range r.fields {
		d.byID[f.ID] = f
	}
	d.idMu.Unlock()
	glog.Verbosef("directory add record=%s fields=%d", r.Name, len(r.fields))
	return nil
}

func (d *Directory) Remove(name string) {
	p := d.getPartition(name)
	p.Lock()
	r, ok := p.records[name]
	delete(p.records, name)
	p.Unlock()
	if ok {
		d.idMu.Lock()
		for _, f := range r.fields {
			delete(d.byID, f.ID)
		}
		d.idMu.Unlock()
	}
}

func (d *Directory) Get(name string) (*Record, bool) {
	p := d.getPartition(name)
	p.RLock()
	r, ok := p.records[name]
	p.RUnlock()
	return r, ok
}

// Resolve looks up "record.field".
func (d *Directory) Resolve(name string) (*Field, error) {
	rname, fname, err := proto.SplitRecordField(name)
	if err != nil {
		return nil, err
	}
	r, ok := d.Get(rname)
	if !ok {
		return nil, proto.Errorf(proto.StatusNotFound, "record '%s' does not exist", rname)
	}
	f, ok := r.Field(fname)
	if !ok {
		return nil, proto.Errorf(proto.StatusNotFound, "field '%s' does not exist in record '%s'", fname, rname)
	}
	return f, nil
}

func (d *Directory) FieldByID(id uint64) (*Field, bool) {
	d.idMu.RLock()
	f, ok := d.byID[id]
	d.idMu.RUnlock()
	return f, ok
}

// Records returns every record sorted by name.
func (d *Directory) Records() []*Record {
	var all []*Record
	for _, p := range d.partitions {
		p.RLock()
		for _, r := range p.records {
			all = append(all, r)
		}
		p.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

func (d *Directory) Len() (n int) {
	for _, p := range d.partitions {
		p.RLock()
		n += len(p.records)
		p.RUnlock()
	}
	return
}
