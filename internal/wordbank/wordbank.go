package wordbank

import (
	"encoding/json"
	"math/rand"
	"os"
	"sync"

	"word-bluff-be/internal/service/game"

	"go.uber.org/zap"
)

type catalogFile struct {
	Words []game.Word `json:"words"`
}

// WordBank 持有词语目录并随机发放未用过的词条。
// 已发放集合是进程级共享状态，由自身的锁保护，
// 与任何房间锁无关，不同房间的抽词互不阻塞。
type WordBank struct {
	mu      sync.Mutex
	catalog []game.Word
	used    map[string]struct{}
}

// Load 从 JSON 数据文件加载词库。
// 空目录是致命配置错误，在启动时拒绝而不是留到抽词时失败。
func Load(path string) (*WordBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file catalogFile

	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	return New(file.Words)
}

func New(words []game.Word) (*WordBank, error) {
	if len(words) == 0 {
		return nil, game.ErrEmptyCatalog
	}

	zap.S().Infof("词库加载完成，共 %d 个词条", len(words))

	return &WordBank{
		catalog: append([]game.Word{}, words...),
		used:    make(map[string]struct{}),
	}, nil
}

// Draw 返回一个伪随机且近期未用过的词条。
// 未用词用尽后清空记录，从整个目录重新抽取。
// 只要目录非空就不会失败。
func (wb *WordBank) Draw() (game.Word, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if len(wb.catalog) == 0 {
		return game.Word{}, game.ErrEmptyCatalog
	}

	unused := make([]game.Word, 0, len(wb.catalog))

	for _, w := range wb.catalog {
		if _, ok := wb.used[w.Text]; !ok {
			unused = append(unused, w)
		}
	}

	if len(unused) == 0 {
		wb.used = make(map[string]struct{})
		unused = wb.catalog
	}

	word := unused[rand.Intn(len(unused))]
	wb.used[word.Text] = struct{}{}

	return word, nil
}
