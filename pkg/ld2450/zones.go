// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kaz Walker, Thermoquad

package ld2450

import (
	"encoding/binary"
	"fmt"
)

// ZoneRegions is the number of filtering regions the module supports.
const ZoneRegions = 3

// zoneDataSize is the filtering type followed by three rectangles of two
// int16 vertices each.
const zoneDataSize = 2 + ZoneRegions*8

// ZoneVertex is a corner of a filtering rectangle in mm.
type ZoneVertex struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
}

// ZoneRegion is a rectangle given by two opposite corners.
type ZoneRegion struct {
	Start ZoneVertex `json:"start" yaml:"start"`
	End   ZoneVertex `json:"end" yaml:"end"`
}

// IsZero reports whether the region is unset.
func (r ZoneRegion) IsZero() bool {
	return r == ZoneRegion{}
}

// ZoneConfiguration is the module's region filter.
type ZoneConfiguration struct {
	Type    ZoneFilteringType       `json:"type" yaml:"type"`
	Regions [ZoneRegions]ZoneRegion `json:"regions" yaml:"regions"`
}

// String returns the filtering type name.
func (z ZoneFilteringType) String() string {
	switch z {
	case ZoneFilterDisabled:
		return "disabled"
	case ZoneFilterDetectOnly:
		return "detect-only"
	case ZoneFilterExclude:
		return "exclude"
	}
	return fmt.Sprintf("unknown(0x%04X)", uint16(z))
}

// MarshalText implements encoding.TextMarshaler.
func (z ZoneFilteringType) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// ParseZoneConfiguration decodes a get_zone_filter acknowledgement.
//
//	C1 01 | 00 00 | type | x1 y1 x2 y2 (region 1) | region 2 | region 3
func ParseZoneConfiguration(ack []byte) (ZoneConfiguration, error) {
	var zc ZoneConfiguration
	data := AckData(ack)
	if len(data) < zoneDataSize {
		return zc, fmt.Errorf("%w: %d zone bytes (want %d)", ErrShortResponse, len(data), zoneDataSize)
	}

	zc.Type = ZoneFilteringType(binary.LittleEndian.Uint16(data))
	vertex := func(off int) ZoneVertex {
		return ZoneVertex{
			X: int16(binary.LittleEndian.Uint16(data[off:])),
			Y: int16(binary.LittleEndian.Uint16(data[off+2:])),
		}
	}
	for i := range zc.Regions {
		off := 2 + i*8
		zc.Regions[i] = ZoneRegion{Start: vertex(off), End: vertex(off + 4)}
	}
	return zc, nil
}
