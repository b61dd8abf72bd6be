package index

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/manvue/go-backend/internal/domain"
	"github.com/manvue/go-backend/pkg/e"
)

// MetadataStore хранит метаданные, построчно выровненные с FlatIndex:
// rows[i] описывает товар, чей вектор добавлен в строку i.
type MetadataStore struct {
	rows []domain.Metadata
}

func NewMetadataStore(rows []domain.Metadata) *MetadataStore {
	return &MetadataStore{rows: rows}
}

// Len возвращает число записей.
func (m *MetadataStore) Len() int {
	return len(m.rows)
}

// Append дописывает записи в конец.
func (m *MetadataStore) Append(rows ...domain.Metadata) {
	m.rows = append(m.rows, rows...)
}

// Clone возвращает независимую копию хранилища.
func (m *MetadataStore) Clone() *MetadataStore {
	rows := make([]domain.Metadata, len(m.rows))
	copy(rows, m.rows)
	return &MetadataStore{rows: rows}
}

// Get возвращает метаданные строки row, nil для строки вне диапазона.
func (m *MetadataStore) Get(row int) *domain.Metadata {
	if row < 0 || row >= len(m.rows) {
		return nil
	}
	md := m.rows[row]
	return &md
}

// BulkGet возвращает метаданные для набора строк, сохраняя входной порядок.
// Строки вне диапазона дают e.ErrRowMisaligned: такого при выровненной паре
// быть не должно.
func (m *MetadataStore) BulkGet(rows []int) ([]domain.Metadata, error) {
	out := make([]domain.Metadata, 0, len(rows))
	for _, row := range rows {
		md := m.Get(row)
		if md == nil {
			return nil, e.ErrRowMisaligned
		}
		out = append(out, *md)
	}
	return out, nil
}

// Save пишет метаданные в JSON через временный файл с атомарным rename —
// парно с FlatIndex.Save, чтобы файлы не могли разойтись на диске.
func (m *MetadataStore) Save(path string) error {
	const op = "MetadataStore.Save"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return e.Wrap(op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metadata-*")
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(m.rows); err != nil {
		return e.Wrap(op, err)
	}

	if err := tmp.Close(); err != nil {
		return e.Wrap(op, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// LoadMetadataStore читает метаданные из JSON-файла.
func LoadMetadataStore(path string) (*MetadataStore, error) {
	const op = "index.LoadMetadataStore"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
	}

	var rows []domain.Metadata
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
	}

	return &MetadataStore{rows: rows}, nil
}
