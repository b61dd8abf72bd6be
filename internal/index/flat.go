// Package index реализует векторный индекс каталога: плоский L2-поиск по
// нормализованным эмбеддингам, построчно выровненные метаданные и
// версионированную публикацию пары (индекс, метаданные).
package index

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/manvue/go-backend/pkg/e"
	"github.com/manvue/go-backend/pkg/vec"
)

// FlatIndex — точный поиск ближайших соседей линейным сканом.
// Для каталога в тысячи-миллионы позиций это корректный базовый вариант;
// строки нумеруются последовательно в порядке добавления.
//
// Методы не синхронизированы: после публикации через Catalog экземпляр
// доступен только на чтение, а чтение без записи безопасно.
type FlatIndex struct {
	dim     int
	vectors []float32 // row-major хранилище, длина = dim * Size()
}

// NewFlatIndex создаёт пустой индекс с заданной размерностью вектора.
func NewFlatIndex(dim int) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	return &FlatIndex{dim: dim}, nil
}

// Size возвращает число строк в индексе.
func (f *FlatIndex) Size() int {
	return len(f.vectors) / f.dim
}

// Dim возвращает размерность вектора.
func (f *FlatIndex) Dim() int {
	return f.dim
}

// Add дописывает векторы подряд начиная со строки startRow.
// startRow обязан совпадать с текущим размером индекса: это внешний
// инвариант выравнивания со слоем метаданных.
func (f *FlatIndex) Add(vectors [][]float32, startRow int) error {
	if startRow != f.Size() {
		return e.Wrap(fmt.Sprintf("start_row %d, index size %d", startRow, f.Size()), e.ErrRowMisaligned)
	}

	for _, v := range vectors {
		if len(v) != f.dim {
			return e.Wrap(fmt.Sprintf("got %d, want %d", len(v), f.dim), e.ErrVectorDimMismatch)
		}
	}

	for _, v := range vectors {
		f.vectors = append(f.vectors, v...)
	}

	return nil
}

// Search возвращает topK ближайших строк по квадрату L2-расстояния,
// отсортированных по возрастанию. Для единичных векторов d² = 2 - 2*cos(θ),
// поэтому порядок совпадает с порядком по косинусной близости.
// Длина результата равна min(topK, Size()); пустой индекс — пустой результат.
// Равные расстояния сохраняют порядок строк (стабильная сортировка).
func (f *FlatIndex) Search(query []float32, topK int) ([]float32, []int, error) {
	if len(query) != f.dim {
		return nil, nil, e.Wrap(fmt.Sprintf("query dim %d, index dim %d", len(query), f.dim), e.ErrVectorDimMismatch)
	}

	n := f.Size()
	if topK <= 0 || n == 0 {
		return []float32{}, []int{}, nil
	}
	if topK > n {
		topK = n
	}

	dists := make([]float32, n)
	for row := 0; row < n; row++ {
		dists[row] = vec.L2Squared(query, f.vectors[row*f.dim:(row+1)*f.dim])
	}

	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return dists[rows[i]] < dists[rows[j]]
	})

	outDists := make([]float32, topK)
	outRows := make([]int, topK)
	for i := 0; i < topK; i++ {
		outRows[i] = rows[i]
		outDists[i] = dists[rows[i]]
	}

	return outDists, outRows, nil
}

// Clone возвращает независимую копию индекса. Используется для дозаписи
// строк без мутации опубликованного экземпляра.
func (f *FlatIndex) Clone() *FlatIndex {
	vectors := make([]float32, len(f.vectors))
	copy(vectors, f.vectors)
	return &FlatIndex{dim: f.dim, vectors: vectors}
}

// Vector возвращает копию вектора строки row.
func (f *FlatIndex) Vector(row int) ([]float32, error) {
	if row < 0 || row >= f.Size() {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, f.Size())
	}
	out := make([]float32, f.dim)
	copy(out, f.vectors[row*f.dim:(row+1)*f.dim])
	return out, nil
}

// Формат файла: uint32 dim, uint32 n, затем n*dim float32 little-endian.
const indexFileMagic = uint32(0x4d56_4958) // "MVIX"

// Save сериализует индекс во временный файл рядом с path и атомарно
// переименовывает, чтобы читатели не видели частично записанный индекс.
func (f *FlatIndex) Save(path string) error {
	const op = "FlatIndex.Save"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return e.Wrap(op, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*")
	if err != nil {
		return e.Wrap(op, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	for _, v := range []uint32{indexFileMagic, uint32(f.dim), uint32(f.Size())} {
		if err := binary.Write(tmp, binary.LittleEndian, v); err != nil {
			return e.Wrap(op, err)
		}
	}

	if err := binary.Write(tmp, binary.LittleEndian, f.vectors); err != nil {
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

// LoadFlatIndex читает индекс из файла. Отсутствующий или повреждённый
// файл — e.ErrIndexUnavailable: вызывающая сторона решает, фатально это
// или можно перестроить индекс из хранилища эмбеддингов.
func LoadFlatIndex(path string, wantDim int) (*FlatIndex, error) {
	const op = "index.LoadFlatIndex"

	file, err := os.Open(path)
	if err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
	}
	defer file.Close()

	var magic, dim, n uint32
	for _, p := range []*uint32{&magic, &dim, &n} {
		if err := binary.Read(file, binary.LittleEndian, p); err != nil {
			return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
		}
	}

	if magic != indexFileMagic {
		return nil, e.Wrap(op, e.Wrap("bad magic", e.ErrIndexUnavailable))
	}
	if wantDim > 0 && int(dim) != wantDim {
		return nil, e.Wrap(op, e.Wrap(fmt.Sprintf("file dim %d, want %d", dim, wantDim), e.ErrIndexUnavailable))
	}

	// Заголовку с потолка верить нельзя: завышенный счётчик строк
	// заставил бы выделить гигабайты до первой ошибки чтения.
	info, err := file.Stat()
	if err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
	}
	const headerSize = 3 * 4 // magic, dim, n
	if wantSize := int64(headerSize) + int64(dim)*int64(n)*4; info.Size() != wantSize {
		return nil, e.Wrap(op, e.Wrap(fmt.Sprintf("file size %d, want %d", info.Size(), wantSize), e.ErrIndexUnavailable))
	}

	vectors := make([]float32, int(dim)*int(n))
	if err := binary.Read(file, binary.LittleEndian, vectors); err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrIndexUnavailable))
	}

	return &FlatIndex{dim: int(dim), vectors: vectors}, nil
}
