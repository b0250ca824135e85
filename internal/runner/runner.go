// Package runner 提供按 bot 并发执行任务的小工具。
// 结果顺序与输入 bot 顺序一致，单个 bot 的失败只记录在自己的 Result 里。
package runner

import (
	"context"
	"sync"
)

// DefaultMaxWorkers 默认并发上限
const DefaultMaxWorkers = 5

// Result 单个 bot 的执行结果
type Result[T any] struct {
	BotName string
	Value   T
	Err     error
}

// RunPerBot 对每个 bot 并发执行 fn，最多 maxWorkers 个并发。
// maxWorkers <= 0 时使用 DefaultMaxWorkers。
func RunPerBot[T any](ctx context.Context, botNames []string, maxWorkers int, fn func(ctx context.Context, botName string) (T, error)) []Result[T] {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	results := make([]Result[T], len(botNames))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, name := range botNames {
		wg.Add(1)
		go func(idx int, botName string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			value, err := fn(ctx, botName)
			results[idx] = Result[T]{BotName: botName, Value: value, Err: err}
		}(i, name)
	}
	wg.Wait()

	return results
}
