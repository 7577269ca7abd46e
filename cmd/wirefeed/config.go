// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/news"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// rules is the filtering configuration loaded from config.star.
type rules struct {
	Blacklist []string
	BlockRule *starlark.Function
}

var (
	errBlacklistType = errors.New("blacklist must be a list of strings")
	errBlockRuleType = errors.New("block_rule must be a function")
)

// loadRules reads rules from path. A missing file means no rules.
func loadRules(path string, logger *slog.Logger) (*rules, error) {
	if path == "" {
		return new(rules), nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("rules file not found, using an empty blacklist", "path", path)
		return new(rules), nil
	}
	if err != nil {
		return nil, err
	}
	r, err := parseRules(path, string(b), logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func parseRules(filename, src string, logger *slog.Logger) (*rules, error) {
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { logger.Info(msg) },
		},
		filename,
		src,
		nil,
	)
	if err != nil {
		return nil, err
	}

	r := new(rules)

	if v, ok := globals["blacklist"]; ok {
		list, ok := v.(*starlark.List)
		if !ok {
			return nil, errBlacklistType
		}
		for i := range list.Len() {
			s, ok := starlark.AsString(list.Index(i))
			if !ok {
				return nil, errBlacklistType
			}
			r.Blacklist = append(r.Blacklist, s)
		}
	}

	if v, ok := globals["block_rule"]; ok && v != starlark.None {
		fn, ok := v.(*starlark.Function)
		if !ok {
			return nil, errBlockRuleType
		}
		r.BlockRule = fn
	}

	return r, nil
}

// blockFunc adapts the Starlark block rule for news.Normalizer. Rule errors
// and non-boolean results are logged and let the item through.
func (r *rules) blockFunc(logger *slog.Logger) func(*news.Item) bool {
	if r.BlockRule == nil {
		return nil
	}
	return func(it *news.Item) bool {
		val, err := starlark.Call(
			&starlark.Thread{
				Print: func(_ *starlark.Thread, msg string) { logger.Info(msg) },
			},
			r.BlockRule,
			starlark.Tuple{itemToStarlark(it)},
			[]starlark.Tuple{},
		)
		if err != nil {
			logger.Warn("applying block rule", "title", it.Title, "error", err)
			return false
		}
		ret, ok := val.(starlark.Bool)
		if !ok {
			logger.Warn("block rule returned non-boolean value", "title", it.Title, "type", val.Type())
			return false
		}
		return bool(ret)
	}
}

func itemToStarlark(it *news.Item) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(
		starlarkstruct.Default,
		starlark.StringDict{
			"title":       starlark.String(it.Title),
			"description": starlark.String(it.Description),
			"tags":        stringList(it.Tags),
			"labels":      stringList(it.Labels),
			"level":       starlark.String(it.Level),
			"breaking":    starlark.Bool(it.Breaking),
		},
	)
}

func stringList(vals []string) *starlark.List {
	elems := make([]starlark.Value, len(vals))
	for i, v := range vals {
		elems[i] = starlark.String(v)
	}
	return starlark.NewList(elems)
}
