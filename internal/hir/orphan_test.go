package hir

import (
	"testing"

	"github.com/verith-lang/verith/internal/typesystem"
)

func TestOrphanCheckRemote(t *testing.T) {
	p := NewProgram("main")
	ictx := typesystem.NewInferCtx()
	extInt := typesystem.Con{Pkg: "core", Name: "Int"}
	localPoint := typesystem.Con{Pkg: "main", Name: "Point"}
	extList := func(e typesystem.Type) typesystem.Type {
		return typesystem.App{Ctor: typesystem.Con{Pkg: "core", Name: "List"}, Args: []typesystem.Type{e}}
	}
	localBox := func(e typesystem.Type) typesystem.Type {
		return typesystem.App{Ctor: typesystem.Con{Pkg: "main", Name: "Box"}, Args: []typesystem.Type{e}}
	}

	tests := []struct {
		name string
		args typesystem.Args
		want bool
	}{
		{
			name: "inference variable head is open to remote impls",
			args: typesystem.Args{typesystem.TypeArg(ictx.FreshTypeVar())},
			want: true,
		},
		{
			name: "local head closes the reference",
			args: typesystem.Args{typesystem.TypeArg(localPoint)},
			want: false,
		},
		{
			name: "external head alone decides nothing",
			args: typesystem.Args{typesystem.TypeArg(extInt)},
			want: false,
		},
		{
			name: "variable under external constructor is covered",
			args: typesystem.Args{typesystem.TypeArg(extList(ictx.FreshTypeVar()))},
			want: false,
		},
		{
			name: "local argument after a covered one still closes",
			args: typesystem.Args{
				typesystem.TypeArg(extInt),
				typesystem.TypeArg(localPoint),
				typesystem.TypeArg(ictx.FreshTypeVar()),
			},
			want: false,
		},
		{
			name: "uncovered variable before the local head wins",
			args: typesystem.Args{
				typesystem.TypeArg(ictx.FreshTypeVar()),
				typesystem.TypeArg(localPoint),
			},
			want: true,
		},
		{
			name: "local application head closes",
			args: typesystem.Args{typesystem.TypeArg(localBox(ictx.FreshTypeVar()))},
			want: false,
		},
		{
			name: "tuple takes its first decisive element",
			args: typesystem.Args{typesystem.TypeArg(typesystem.Tuple{
				Elems: []typesystem.Type{extInt, localPoint},
			})},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := Ref{Interface: "Ord", Args: tt.args}
			if got := OrphanCheckRemote(p, ictx, ref); got != tt.want {
				t.Errorf("OrphanCheckRemote(%s) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}
