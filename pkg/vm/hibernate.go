package vm

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSnapshotMismatch reports a snapshot taken from a different program.
var ErrSnapshotMismatch = errors.New("snapshot does not match the loaded program")

// humanReadableState is the JSON-serializable snapshot of VM control state.
type humanReadableState struct {
	ProgramSize int         `json:"program_size"`
	PC          int         `json:"pc"`
	Halted      bool        `json:"halted"`
	Steps       int         `json:"steps"`
	Color       bool        `json:"color"`
	Cursor      int         `json:"cursor"`
	HeapFree    [][2]int    `json:"heap_free"`
	HeapUsed    map[int]int `json:"heap_used"`
}

// HibernateToBytes serialises the complete VM state into an in-memory ZIP
// archive and returns the raw bytes. The program itself is not included.
func (v *VM) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := humanReadableState{
		ProgramSize: len(v.prog.Code),
		PC:          v.PC,
		Halted:      v.Halted,
		Steps:       v.Steps,
		Color:       v.color,
		Cursor:      v.text.cursor,
		HeapUsed:    v.heap.used,
	}
	for _, s := range v.heap.free {
		state.HeapFree = append(state.HeapFree, [2]int{s.addr, s.size})
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal vm_state: %w", err)
	}
	if err := writeZipEntry(zw, "vm_state.json", jsonData); err != nil {
		return nil, err
	}

	ram := make([]byte, MemorySize*2)
	for i, w := range v.RAM {
		binary.LittleEndian.PutUint16(ram[i*2:], uint16(w))
	}
	if err := writeZipEntry(zw, "ram.bin", ram); err != nil {
		return nil, err
	}

	text := make([]byte, len(v.text.cells)*4)
	for i, r := range v.text.cells {
		binary.LittleEndian.PutUint32(text[i*4:], uint32(r))
	}
	if err := writeZipEntry(zw, "text_grid.bin", text); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies an archive produced by HibernateToBytes. The VM
// must have been created from the same program.
func (v *VM) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "vm_state.json")
	if err != nil {
		return err
	}
	var state humanReadableState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal vm_state: %w", err)
	}
	if state.ProgramSize != len(v.prog.Code) {
		return fmt.Errorf("%w: %d instructions, snapshot has %d", ErrSnapshotMismatch, len(v.prog.Code), state.ProgramSize)
	}

	ram, err := readZipEntry(fileMap, "ram.bin")
	if err != nil {
		return err
	}
	if len(ram) != MemorySize*2 {
		return fmt.Errorf("ram.bin: %d bytes", len(ram))
	}
	text, err := readZipEntry(fileMap, "text_grid.bin")
	if err != nil {
		return err
	}
	if len(text) != len(v.text.cells)*4 {
		return fmt.Errorf("text_grid.bin: %d bytes", len(text))
	}

	for i := range v.RAM {
		v.RAM[i] = int16(binary.LittleEndian.Uint16(ram[i*2:]))
	}
	for i := range v.text.cells {
		v.text.cells[i] = rune(binary.LittleEndian.Uint32(text[i*4:]))
	}
	v.text.cursor = state.Cursor

	v.heap.free = v.heap.free[:0]
	for _, s := range state.HeapFree {
		v.heap.free = append(v.heap.free, span{addr: s[0], size: s[1]})
	}
	v.heap.used = state.HeapUsed
	if v.heap.used == nil {
		v.heap.used = make(map[int]int)
	}

	v.PC = state.PC
	v.Halted = state.Halted
	v.Steps = state.Steps
	v.color = state.Color
	return nil
}

// HibernateToFile writes the hibernation archive to the given file path.
func (v *VM) HibernateToFile(path string) error {
	data, err := v.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from the given file path and
// restores the VM state.
func (v *VM) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return v.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
