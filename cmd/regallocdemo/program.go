package main

import (
	"fmt"
	"os"

	"github.com/regalloc/chaitin/internal/machdesc"
	"github.com/regalloc/chaitin/internal/regalloc"
	"github.com/regalloc/chaitin/internal/ssacfg"
	"gopkg.in/yaml.v3"
)

// program is the on-disk description a demo input file decodes into: a flat
// list of blocks, each a flat list of instructions. There is no parser, no
// SSA construction and no lowering here — this is a direct, literal
// transcription of a CFG already in the shape the allocator wants, the same
// role internal/ssacfg's builder API plays for tests.
type program struct {
	Blocks []blockSpec `yaml:"blocks"`
}

type blockSpec struct {
	ID     int         `yaml:"id"`
	Entry  bool        `yaml:"entry"`
	Preds  []int       `yaml:"preds"`
	Instrs []instrSpec `yaml:"instrs"`
}

type instrSpec struct {
	Op           string   `yaml:"op"`
	Def          string   `yaml:"def"`
	Uses         []string `yaml:"uses"`
	Bank         string   `yaml:"bank"`
	Copy         bool     `yaml:"copy"`
	Call         bool     `yaml:"call"`
	IndirectCall bool     `yaml:"indirect_call"`
	Return       bool     `yaml:"return"`
	Phi          bool     `yaml:"phi"`
	TwoAddress   *int     `yaml:"two_address"`
	Safepoint    bool     `yaml:"safepoint"`
	DerivedOop   bool     `yaml:"derived_oop"`
	OopDef       bool     `yaml:"oop_def"`
	CISCFusable  bool     `yaml:"cisc_fusable"`
	FatProj      bool     `yaml:"fat_proj"`
}

func loadProgram(path string) (*program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var p program
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &p, nil
}

// build turns a program into an ssacfg.Func, using mach to pick each
// instruction's register-class mask by bank ("int" or "float", default
// "int").
func build(p *program, mach *machdesc.Info) (*ssacfg.Func, error) {
	f := ssacfg.New()
	vregs := make(map[string]regalloc.VReg)
	blocksByID := make(map[int]*ssacfg.Blk)
	ordered := make([]*ssacfg.Blk, len(p.Blocks))

	vregFor := func(name, bank string) regalloc.VReg {
		if v, ok := vregs[name]; ok {
			return v
		}
		t := regalloc.RegTypeInt
		if bank == "float" {
			t = regalloc.RegTypeFloat
		}
		v := f.NewVReg(t)
		vregs[name] = v
		return v
	}

	for i, bs := range p.Blocks {
		b := f.NewBlock(bs.Entry)
		if b.ID() != bs.ID {
			return nil, fmt.Errorf("block %d must be listed in id order (got position %d)", bs.ID, i)
		}
		blocksByID[bs.ID] = b
		ordered[i] = b
	}
	for _, bs := range p.Blocks {
		b := blocksByID[bs.ID]
		for _, predID := range bs.Preds {
			pred, ok := blocksByID[predID]
			if !ok {
				return nil, fmt.Errorf("block %d: unknown predecessor %d", bs.ID, predID)
			}
			b.AddPred(pred)
		}
	}

	maskFor := func(bank string) regalloc.RegMask {
		if bank == "float" {
			return mach.FloatMask()
		}
		return mach.IntMask()
	}

	for _, bs := range p.Blocks {
		b := blocksByID[bs.ID]
		for _, is := range bs.Instrs {
			in := ssacfg.NewInstr(is.Op)
			mask := maskFor(is.Bank)
			if is.Def != "" {
				in.Def(vregFor(is.Def, is.Bank), mask)
			}
			for _, u := range is.Uses {
				in.Use(vregFor(u, is.Bank), mask)
			}
			if is.Copy {
				in.Copy()
			}
			if is.IndirectCall {
				in.IndirectCall()
			} else if is.Call {
				in.Call()
			}
			if is.Return {
				in.Return()
			}
			if is.Phi {
				in.Phi()
			}
			if is.TwoAddress != nil {
				in.TwoAddress(*is.TwoAddress)
			}
			if is.Safepoint {
				in.Safepoint()
			}
			if is.DerivedOop {
				in.DerivedOop()
			}
			if is.OopDef {
				in.OopDef()
			}
			if is.CISCFusable {
				in.CISCFusable()
			}
			if is.FatProj {
				in.FatProj()
			}
			b.Emit(in)
		}
	}

	f.Finalize(ordered)
	return f, nil
}
