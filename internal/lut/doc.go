// Package lut parses, stores, samples, and writes 3D colour look-up tables.
//
// A Table is an immutable N×N×N grid of RGB triples read from the `.cube`
// text format. Entries are stored red-fastest: the entry for grid coordinate
// (r, g, b) lives at index r + g*N + b*N*N. Parsing and sampling both use this
// convention, and Write emits tables in the same order so a written table
// parses back bit-for-bit.
//
// Sampling clamps the input colour to [0, 1] and interpolates trilinearly
// across the eight surrounding grid vertices. The sampled value is never
// clamped: creative grades may store values outside [0, 1] and callers decide
// where to clip.
package lut
