package catalog

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/skdltmxn/pdbtypes/pdb"
)

// batchSize is the number of records one conversion goroutine handles.
const batchSize = 256

// Load opens the PDB at path and builds its catalog. The file is closed
// before Load returns; the catalog holds no reference to it.
func Load(ctx context.Context, path string) (*Catalog, error) {
	f, err := pdb.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Build(ctx, f, path)
}

// Build converts every class, struct, union, enum and typedef of f into a
// TypeRecord. Either every record converts or Build fails.
func Build(ctx context.Context, f *pdb.File, path string) (*Catalog, error) {
	if _, err := f.Info(); err != nil {
		return nil, err
	}
	types, err := f.Types()
	if err != nil {
		return nil, err
	}

	c := newCatalog(path, f.Architecture())
	conv := &converter{types: types}

	var jobs []pdb.Type
	for ti := types.FirstIndex(); ti <= types.LastIndex(); ti++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		typ, err := types.ByIndex(ti)
		if err != nil {
			return nil, err
		}

		switch t := typ.(type) {
		case pdb.UserDefinedType:
			if t.IsForwardRef() {
				if def, ok := types.Definition(t); ok {
					c.redirect[ID(ti)] = ID(def.Index())
					continue
				}
			}
			jobs = append(jobs, t)
		case *pdb.AliasType:
			jobs = append(jobs, t)
		}
	}

	// Conversion fans out in batches; results land at their job's position
	// so stream order survives.
	out := make([]*TypeRecord, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for start := 0; start < len(jobs); start += batchSize {
		end := min(start+batchSize, len(jobs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec, err := conv.record(jobs[i])
				if err != nil {
					return fmt.Errorf("catalog: type 0x%x (%s): %w", uint32(jobs[i].Index()), jobs[i].Name(), err)
				}
				out[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range out {
		c.add(r)
	}
	return c, nil
}

func (c *converter) record(typ pdb.Type) (*TypeRecord, error) {
	r := &TypeRecord{
		ID:        ID(typ.Index()),
		Name:      typ.Name(),
		Size:      typ.Size(),
		Anonymous: IsAnonymousName(typ.Name()),
	}

	switch t := typ.(type) {
	case *pdb.AliasType:
		r.Kind = KindAlias
		underlying, err := c.expr(t.UnderlyingType())
		if err != nil {
			return nil, err
		}
		r.Underlying = underlying
		return r, nil

	case *pdb.EnumType:
		r.Kind = KindEnum
		r.UniqueName = t.UniqueName()
		r.Scoped = t.IsScoped()
		r.Opaque = t.IsForwardRef()
		underlying, err := c.expr(t.UnderlyingType())
		if err != nil {
			return nil, err
		}
		r.Underlying = underlying

	case *pdb.UnionType:
		r.Kind = KindUnion
		r.UniqueName = t.UniqueName()
		r.Opaque = t.IsForwardRef()

	case *pdb.ClassType:
		r.Kind = KindClass
		if t.Kind() == pdb.TypeKindStruct {
			r.Kind = KindStruct
		}
		r.UniqueName = t.UniqueName()
		r.Opaque = t.IsForwardRef()

	default:
		return nil, fmt.Errorf("%w: unexpected %s record", ErrMalformed, typ.Kind())
	}

	if r.Opaque {
		r.Size = 0
		return r, nil
	}
	if err := c.fields(r, typ.(pdb.UserDefinedType).FieldList()); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *converter) fields(r *TypeRecord, list pdb.TypeIndex) error {
	if list == pdb.NoType {
		return nil
	}
	fields, err := c.types.Fields(list)
	if err != nil {
		return err
	}

	for _, f := range fields {
		switch f.Kind {
		case pdb.FieldMember, pdb.FieldStaticMember:
			e, err := c.expr(f.Type)
			if err != nil {
				return fmt.Errorf("member %s: %w", f.Name, err)
			}
			r.Members = append(r.Members, Member{
				Name:   f.Name,
				Offset: f.Offset,
				Type:   e,
				Access: f.Access,
				Static: f.Kind == pdb.FieldStaticMember,
			})

		case pdb.FieldBaseClass, pdb.FieldVirtualBaseClass:
			// indirect virtual bases are inherited, not declared here
			if f.Indirect {
				continue
			}
			base, err := c.expr(f.Type)
			if err != nil {
				return fmt.Errorf("base class: %w", err)
			}
			if base.Kind != ExprNamed {
				return fmt.Errorf("%w: base class 0x%x is not a class", ErrMalformed, uint32(f.Type))
			}
			r.Bases = append(r.Bases, Base{
				Ref:     base.Ref,
				Name:    base.Name,
				Access:  f.Access,
				Virtual: f.Kind == pdb.FieldVirtualBaseClass,
			})

		case pdb.FieldEnumerator:
			r.Enumerators = append(r.Enumerators, Enumerator{Name: f.Name, Value: f.Value})
		}
	}
	return nil
}
