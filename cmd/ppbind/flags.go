package main

import (
	"fmt"
	"strconv"

	"gopkg.in/alecthomas/kingpin.v2"
)

// optional is a flag value that stays nil unless given.
type optional[T any] struct {
	v     *T
	parse func(string) (T, error)
}

func (o *optional[T]) Set(s string) error {
	v, err := o.parse(s)
	if err != nil {
		return err
	}
	o.v = &v
	return nil
}

func (o *optional[T]) String() string {
	if o.v == nil {
		return ""
	}
	return fmt.Sprint(*o.v)
}

func optInt(cmd *kingpin.CmdClause, name, help string) *optional[int] {
	o := &optional[int]{parse: strconv.Atoi}
	cmd.Flag(name, help).SetValue(o)
	return o
}

func optFloat(cmd *kingpin.CmdClause, name, help string) *optional[float64] {
	o := &optional[float64]{parse: func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}}
	cmd.Flag(name, help).SetValue(o)
	return o
}

func optUint32(cmd *kingpin.CmdClause, name, help string) *optional[uint32] {
	o := &optional[uint32]{parse: func(s string) (uint32, error) {
		v, err := strconv.ParseUint(s, 10, 32)
		return uint32(v), err
	}}
	cmd.Flag(name, help).SetValue(o)
	return o
}
