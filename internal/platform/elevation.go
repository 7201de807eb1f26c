package platform

import (
	"context"
	"fmt"

	"prebuild/internal/fileutil"
	"prebuild/internal/services"
)

// ElevatedCopy copies src to dst with administrator rights where the host
// requires a separate elevation step, then marks dst executable. It is the
// fallback used after a plain copy fails with a permission error.
func ElevatedCopy(ctx context.Context, runner services.Runner, src, dst string) error {
	if runner == nil {
		runner = services.ExecRunner{}
	}
	if err := elevatedCopy(ctx, runner, src, dst); err != nil {
		return services.Wrap(services.ErrPermission, "", "elevated copy", fmt.Sprintf("%s -> %s", src, dst), err)
	}
	if err := fileutil.MakeExecutable(dst); err != nil {
		return services.Wrap(services.ErrPermission, "", "chmod", dst, err)
	}
	return nil
}
