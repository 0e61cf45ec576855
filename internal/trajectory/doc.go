// Package trajectory buffers per-step ion positions and persists them.
//
// The on-disk layout is:
//
//	|-- 1 --||-- 2 --||-- 3 --||-- ... 4 ... --|
//
//	1 - (int32) endianness flag. 0 is little endian, -1 big endian.
//	2 - (int32) size of the Header block in bytes.
//	3 - (Header) magic, version, ion count, timestep and duration.
//	4 - records of one float64 time followed by NumIons x, y, z float64
//	    positions in meters.
package trajectory
