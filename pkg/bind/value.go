// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bind

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Port is a TCP or UDP port number. A field of type Port (or *Port) may
// carry a `port:"min-max"` tag restricting the accepted range.
//
//	type Flags struct {
//	    HTTPPort  Port  `flag:"port" port:"1-65535" help:"HTTP port"`
//	    AdminPort *Port `flag:"admin" port:"8000-9000"`
//	}
type Port uint16

var (
	portType        = reflect.TypeOf(Port(0))
	durationType    = reflect.TypeOf(time.Duration(0))
	urlType         = reflect.TypeOf(url.URL{})
	urlPtrType      = reflect.TypeOf((*url.URL)(nil))
	versionType     = reflect.TypeOf(semver.Version{})
	versionPtrType  = reflect.TypeOf((*semver.Version)(nil))
	constraintsType = reflect.TypeOf((*semver.Constraints)(nil))
)

// parsePortRange parses a range such as "1-65535". An empty string means
// no restriction.
func parsePortRange(rangeStr string) (min, max uint16, err error) {
	if rangeStr == "" {
		return 0, 0, nil
	}
	lo, hi, ok := strings.Cut(rangeStr, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid port range format %q (expected \"min-max\")", rangeStr)
	}
	minVal, err := strconv.ParseUint(lo, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min port in range %q: %w", rangeStr, err)
	}
	maxVal, err := strconv.ParseUint(hi, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max port in range %q: %w", rangeStr, err)
	}
	if minVal > maxVal {
		return 0, 0, fmt.Errorf("invalid port range %q: min (%d) > max (%d)", rangeStr, minVal, maxVal)
	}
	return uint16(minVal), uint16(maxVal), nil
}

func parsePort(value, portRange string) (Port, error) {
	v, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			if portRange != "" {
				return 0, fmt.Errorf("port must be between %s, got %q", portRange, value)
			}
			return 0, fmt.Errorf("port must be between 0 and 65535, got %q", value)
		}
		return 0, fmt.Errorf("invalid port value %q", value)
	}
	port := Port(v)
	if portRange != "" {
		lo, hi, err := parsePortRange(portRange)
		if err != nil {
			return 0, err
		}
		if port < Port(lo) || port > Port(hi) {
			return 0, fmt.Errorf("port must be between %s, got %d", portRange, port)
		}
	}
	return port, nil
}

// convert parses value into a new value of type t.
func convert(t reflect.Type, value, portRange string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if err := setFieldValue(out, value, portRange); err != nil {
		return reflect.Value{}, err
	}
	return out, nil
}

// setFieldValue sets field from its string form.
func setFieldValue(field reflect.Value, value, portRange string) error {
	switch field.Type() {
	case portType:
		port, err := parsePort(value, portRange)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(port))
		return nil
	case durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		field.SetInt(int64(d))
		return nil
	case urlType, urlPtrType:
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", value, err)
		}
		if field.Kind() == reflect.Ptr {
			field.Set(reflect.ValueOf(u))
		} else {
			field.Set(reflect.ValueOf(*u))
		}
		return nil
	case versionType, versionPtrType:
		v, err := semver.NewVersion(value)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", value, err)
		}
		if field.Kind() == reflect.Ptr {
			field.Set(reflect.ValueOf(v))
		} else {
			field.Set(reflect.ValueOf(*v))
		}
		return nil
	case constraintsType:
		c, err := semver.NewConstraint(value)
		if err != nil {
			return fmt.Errorf("invalid version constraint %q: %w", value, err)
		}
		field.Set(reflect.ValueOf(c))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
		return nil

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool value %q: %w", value, err)
		}
		field.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid int value %q: %w", value, err)
		}
		field.SetInt(i)
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid uint value %q: %w", value, err)
		}
		field.SetUint(u)
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value %q: %w", value, err)
		}
		field.SetFloat(f)
		return nil

	case reflect.Ptr:
		elem := reflect.New(field.Type().Elem())
		if err := setFieldValue(elem.Elem(), value, portRange); err != nil {
			return err
		}
		field.Set(elem)
		return nil

	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
}

// splitList splits a comma-separated option value, dropping empty parts.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// assign stores v into field, allocating for pointer fields and converting
// between numeric kinds as needed.
func assign(field reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	ft := field.Type()
	switch {
	case rv.Type().AssignableTo(ft):
		field.Set(rv)
	case ft.Kind() == reflect.Ptr && rv.Type().AssignableTo(ft.Elem()):
		p := reflect.New(ft.Elem())
		p.Elem().Set(rv)
		field.Set(p)
	case rv.Type().ConvertibleTo(ft):
		field.Set(rv.Convert(ft))
	default:
		return fmt.Errorf("cannot assign %s to field of type %s", rv.Type(), ft)
	}
	return nil
}
