package main

import (
	"os"

	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Out      string
	CloseOut func() error

	Main *cli.Command
}

func (cfg *MainConfig) outOpt(cc *cli.Context, a string) (any, error) {
	cfg.Out = a
	if a == "-" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	cc.Out = f
	cfg.CloseOut = f.Close
	return nil, nil
}

type ApplyConfig struct {
	*MainConfig
	Interactive bool   `cli:"name=i aliases=interactive desc='prompt on conflicts instead of failing'"`
	Dup         bool   `cli:"name=dup desc='allow duplicate groups, files, and proxies'"`
	InPlace     bool   `cli:"name=w desc='write the merged project back to the project file'"`
	Only        string `cli:"name=only desc='expression selecting hierarchy operations, over Op, Path, Kind'"`

	Apply *cli.Command
}

type PatchConfig struct {
	*MainConfig

	Patch *cli.Command
}
