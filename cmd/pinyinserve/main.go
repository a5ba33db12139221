// Copyright 2025 The PinyinServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the pinyinserve prediction engine.

PinyinServe turns a pinyin preedit such as "nihao" into ranked Chinese
candidates. Candidates come from a syllable trie ranked by frequency and by
what the user picked before in the same context. Selections feed back into
both scores while the process runs.

# Usage

Serve MessagePack requests on stdin/stdout (the default):

	pinyinserve
	pinyinserve serve --dict ~/words.txt -d

Try predictions by hand:

	pinyinserve cli --limit 5

Compile a text dictionary into the binary format:

	pinyinserve compile words.txt words.bin

# IPC Protocol

Each request is one MessagePack map. A prediction names the committed text
to the left of the cursor and the current preedit:

	{"id": "r1", "op": "predict", "l": "我想", "p": "qu"}

Only the latest prediction is answered; an older one still being computed
is dropped without a response:

	{"id": "r1", "w": "qu", "s": [{"w": "去", "r": 1}, {"w": "趣", "r": 2}], "c": 2}

Report the candidate the user committed so it ranks higher next time:

	{"id": "r2", "op": "select", "w": "去"}

# Configuration

A config.toml is created in the user config directory on first run. The
[engine] section is reloaded while serving whenever the file changes.

	[engine]
	max_suggestions = 0
	selection_timeout = "30s"
	reinforce_delta = 20

	[dict]
	files = ["extra.txt"]
	use_base = true
*/
package main

import (
	"os"

	"github.com/bastiangx/pinyinserve/internal/cli"
)

const Version = "0.1.0-beta"

func main() {
	if err := cli.New(Version).Run(); err != nil {
		os.Exit(1)
	}
}
