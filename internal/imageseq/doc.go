// Package imageseq implements frame.Source and frame.Sink over directories of
// numbered still images (PNG, TIFF or Radiance HDR). It is the reference
// container for exports that do not need a video codec.
package imageseq
