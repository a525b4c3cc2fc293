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

package proto

import (
	"fmt"
	"math"
	"reflect"
)

// Value is a field value in memory. Data is a flat, row-major slice whose
// element type is fixed by Type:
//
//	string        []string
//	char          []int8
//	uchar         []uint8
//	short         []int16
//	ushort        []uint16
//	bool          []bool
//	long          []int64
//	ulong, hex    []uint64
//	float         []float32
//	double        []float64
//	int64         []int64
//	uint64        []uint64
//
// For strings the last dimension is the maximum string length including
// the terminating NUL, so a scalar string has one dimension.
type Value struct {
	Type Datatype
	Dims []int
	Data interface{}
}

// NumElements returns the number of elements held by a value of the given
// datatype and dimensions.
func NumElements(dt Datatype, dims []int) int {
	n := 1
	d := dims
	if dt == TypeString && len(d) > 0 {
		d = d[:len(d)-1]
	}
	for _, sz := range d {
		n *= sz
	}
	return n
}

func CheckShape(dt Datatype, dims []int) error {
	if !dt.IsValid() {
		return Errorf(StatusTypeMismatch, "unsupported datatype %d", uint32(dt))
	}
	if dt == TypeString && len(dims) == 0 {
		return Errorf(StatusIllegalArgument, "string field needs a maximum length dimension")
	}
	for i, sz := range dims {
		if sz <= 0 {
			return Errorf(StatusIllegalArgument, "dimension %d has size %d", i, sz)
		}
	}
	return nil
}

func NewValue(dt Datatype, dims []int) (*Value, error) {
	if err := CheckShape(dt, dims); err != nil {
		return nil, err
	}
	v := &Value{
		Type: dt,
		Dims: append([]int(nil), dims...),
		Data: newData(dt, NumElements(dt, dims)),
	}
	return v, nil
}

func newData(dt Datatype, n int) interface{} {
	switch dt {
	case TypeString:
		return make([]string, n)
	case TypeChar:
		return make([]int8, n)
	case TypeUChar:
		return make([]uint8, n)
	case TypeShort:
		return make([]int16, n)
	case TypeUShort:
		return make([]uint16, n)
	case TypeBool:
		return make([]bool, n)
	case TypeLong, TypeInt64:
		return make([]int64, n)
	case TypeULong, TypeHex, TypeUInt64:
		return make([]uint64, n)
	case TypeFloat:
		return make([]float32, n)
	case TypeDouble:
		return make([]float64, n)
	}
	return nil
}

// MaxStringLen is the per-element string capacity including the NUL.
func (v *Value) MaxStringLen() int {
	if v.Type != TypeString || len(v.Dims) == 0 {
		return 0
	}
	return v.Dims[len(v.Dims)-1]
}

func (v *Value) Len() int {
	if v.Data == nil {
		return 0
	}
	return reflect.ValueOf(v.Data).Len()
}

// Validate checks that Data has the element type and count implied by
// Type and Dims.
func (v *Value) Validate() error {
	if err := CheckShape(v.Type, v.Dims); err != nil {
		return err
	}
	want := reflect.TypeOf(newData(v.Type, 0))
	if reflect.TypeOf(v.Data) != want {
		return Errorf(StatusTypeMismatch, "%s value holds %T", v.Type, v.Data)
	}
	if n := NumElements(v.Type, v.Dims); v.Len() != n {
		return Errorf(StatusIllegalArgument, "%s value holds %d elements, expected %d", v.Type, v.Len(), n)
	}
	if v.Type == TypeString {
		max := v.MaxStringLen()
		for i, s := range v.Data.([]string) {
			if len(s) >= max {
				return Errorf(StatusIllegalArgument, "string element %d is %d bytes, maximum is %d", i, len(s), max-1)
			}
		}
	}
	return nil
}

func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{Type: v.Type, Dims: append([]int(nil), v.Dims...)}
	if v.Data != nil {
		src := reflect.ValueOf(v.Data)
		dst := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		reflect.Copy(dst, src)
		c.Data = dst.Interface()
	}
	return c
}

func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.Type != o.Type || len(v.Dims) != len(o.Dims) {
		return false
	}
	for i := range v.Dims {
		if v.Dims[i] != o.Dims[i] {
			return false
		}
	}
	return reflect.DeepEqual(v.Data, o.Data)
}

// Float64At returns element i as a float64 for numeric datatypes.
func (v *Value) Float64At(i int) (float64, bool) {
	switch d := v.Data.(type) {
	case []int16:
		return float64(d[i]), true
	case []uint16:
		return float64(d[i]), true
	case []int64:
		return float64(d[i]), true
	case []uint64:
		return float64(d[i]), true
	case []float32:
		return float64(d[i]), true
	case []float64:
		return d[i], true
	}
	return 0, false
}

// Differs reports whether o differs from v by more than threshold in any
// element. Non-numeric values differ on any change.
func (v *Value) Differs(o *Value, threshold float64) bool {
	if o == nil || v.Type != o.Type || v.Len() != o.Len() {
		return true
	}
	if !v.Type.IsNumeric() || threshold <= 0 {
		return !v.Equal(o)
	}
	for i := 0; i < v.Len(); i++ {
		a, _ := v.Float64At(i)
		b, _ := o.Float64At(i)
		if math.Abs(a-b) > threshold {
			return true
		}
	}
	return false
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s%v=%v", v.Type, v.Dims, v.Data)
}
