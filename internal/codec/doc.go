// Package codec defines the byte layout of a log archive.
//
// All integers are big-endian; strings are a uvarint length followed by that
// many bytes.
//
//	header  := "LGAR" version:u8 owner:str attrCount:uvarint (key:str value:str)*
//	entry   := key:str recordCount:uvarint record*
//	record  := name:str length:u64 payload[length]
//	trailer := index[trailerLength] footer
//	footer  := totalLength:u64 trailerLength:u32 "LGTR"
//
// Records carry no delimiters; every boundary is found from a declared length,
// so payload bytes can never be mistaken for structure.
package codec
