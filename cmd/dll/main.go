// Package main provides C-compatible exports for the tokenstream library.
// Build with: go build -buildmode=c-shared -o tokenstream.dll
package main

/*
#include <stdlib.h>
#include <stdint.h>

// Result structure for operations that return data
typedef struct {
    char* data;
    int   data_len;
    char* error;
} TsResult;
*/
import "C"

import (
	"bytes"
	"unsafe"

	json "github.com/goccy/go-json"

	"github.com/logicossoftware/go-tokenstream"
)

func main() {}

// TsFrameVersion returns the frame format version supported by this library.
//
//export TsFrameVersion
func TsFrameVersion() C.uint16_t {
	return C.uint16_t(tokenstream.FrameVersionV1)
}

// TsFreeResult frees memory allocated by other Ts functions.
// Must be called to avoid memory leaks.
//
//export TsFreeResult
func TsFreeResult(result C.TsResult) {
	if result.data != nil {
		C.free(unsafe.Pointer(result.data))
	}
	if result.error != nil {
		C.free(unsafe.Pointer(result.error))
	}
}

// TsFreeString frees a C string allocated by Go.
//
//export TsFreeString
func TsFreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func makeResult(data []byte) C.TsResult {
	var result C.TsResult
	if len(data) > 0 {
		result.data = (*C.char)(C.CBytes(data))
		result.data_len = C.int(len(data))
	}
	return result
}

func makeError(err error) C.TsResult {
	var result C.TsResult
	result.error = C.CString(err.Error())
	return result
}

// TsWrapFrame wraps a raw stream in a frame.
// Parameters:
//   - data: pointer to the stream bytes
//   - dataLen: length of the data
//   - compression: 0=None, 1=ZIP, 2=ZSTD, 3=LZ4, 4=Brotli
//   - digest: non-zero to store a BLAKE3 digest
//
// Returns TsResult with the frame or error. Call TsFreeResult when done.
//
//export TsWrapFrame
func TsWrapFrame(data *C.char, dataLen C.int, compression C.uint16_t, digest C.int) C.TsResult {
	payload := C.GoBytes(unsafe.Pointer(data), dataLen)
	var buf bytes.Buffer
	err := tokenstream.WriteFrame(&buf, payload,
		tokenstream.WithCompression(tokenstream.Compression(compression)),
		tokenstream.WithDigest(digest != 0))
	if err != nil {
		return makeError(err)
	}
	return makeResult(buf.Bytes())
}

// TsUnwrapFrame returns the raw stream stored in a frame.
//
//export TsUnwrapFrame
func TsUnwrapFrame(data *C.char, dataLen C.int) C.TsResult {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	payload, err := tokenstream.ReadFrame(bytes.NewReader(goData))
	if err != nil {
		return makeError(err)
	}
	return makeResult(payload)
}

// TsInspect returns the element tree of a raw stream as JSON: an array of
// objects with token, offset, length, run, text, hex and children.
//
//export TsInspect
func TsInspect(data *C.char, dataLen C.int) C.TsResult {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	elements, err := tokenstream.Inspect(goData)
	if err != nil {
		return makeError(err)
	}
	jsonBytes, err := json.Marshal(elements)
	if err != nil {
		return makeError(err)
	}
	return makeResult(jsonBytes)
}

// TsValidate checks that a raw stream parses to its end.
// Returns NULL on success, or an error message string on failure.
// Call TsFreeString on the result if non-NULL.
//
//export TsValidate
func TsValidate(data *C.char, dataLen C.int) *C.char {
	goData := C.GoBytes(unsafe.Pointer(data), dataLen)
	if _, err := tokenstream.Inspect(goData); err != nil {
		return C.CString(err.Error())
	}
	return nil
}
