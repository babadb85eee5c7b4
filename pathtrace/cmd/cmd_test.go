package cmd

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--env-file", ""))

	err := root.Execute()

	return out.String(), errOut.String(), err
}

var _ = Describe("Commands", func() {
	It("should trace a built-in path", func() {
		out, _, err := run("trace", "startup", "--no-color")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== Trace: startup ==="))
		Expect(out).To(ContainSubstring("compile-templates"))
		Expect(out).NotTo(ContainSubstring("=== Trace: data-access ==="))
	})

	It("should persist traces as JSON", func() {
		dir := GinkgoT().TempDir()

		_, _, err := run("trace", "data-access", "--no-color",
			"--sink", "json", "--out", dir)

		Expect(err).NotTo(HaveOccurred())

		files, err := filepath.Glob(filepath.Join(dir, "data-access_*.json"))
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
	})

	It("should persist traces into SQLite", func() {
		dir := GinkgoT().TempDir()

		_, _, err := run("trace", "startup", "--no-color",
			"--sink", "sqlite", "--out", dir)

		Expect(err).NotTo(HaveOccurred())

		files, err := filepath.Glob(filepath.Join(dir, "*.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))
	})

	It("should show traces stored in SQLite", func() {
		dir := GinkgoT().TempDir()

		_, _, err := run("trace", "startup", "data-access", "--no-color",
			"--sink", "sqlite", "--out", dir)
		Expect(err).NotTo(HaveOccurred())

		files, err := filepath.Glob(filepath.Join(dir, "*.sqlite3"))
		Expect(err).NotTo(HaveOccurred())
		Expect(files).To(HaveLen(1))

		out, _, err := run("show", files[0], "--no-color")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== Trace: startup ==="))
		Expect(out).To(ContainSubstring("=== Trace: data-access ==="))
		Expect(out).To(ContainSubstring("compile-templates"))

		out, _, err = run("show", files[0], "data-access", "--no-color")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== Trace: data-access ==="))
		Expect(out).NotTo(ContainSubstring("=== Trace: startup ==="))

		_, _, err = run("show", files[0], "nope")
		Expect(err).To(MatchError(ContainSubstring("no traces found")))
	})

	It("should refuse to show a missing database", func() {
		_, _, err := run("show", filepath.Join(GinkgoT().TempDir(), "x.sqlite3"))

		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown paths", func() {
		_, _, err := run("trace", "nope")

		Expect(err).To(MatchError(ContainSubstring(`unknown path "nope"`)))
	})

	It("should compare paths", func() {
		out, _, err := run("compare", "startup", "data-access", "--no-color")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== Path comparison ==="))
		Expect(out).To(ContainSubstring("Fastest: "))
		Expect(out).To(ContainSubstring("Slowest: "))
	})

	It("should run the smoothing loop", func() {
		GinkgoT().Setenv("PATHTRACE_SMOOTHING_PAUSE_MS", "0")

		out, _, err := run("smooth", "--iterations", "1")

		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("=== Smoothing summary ==="))
		Expect(out).To(ContainSubstring("after 1 iteration(s)"))
	})

	It("should refuse an invalid configuration", func() {
		file := filepath.Join(GinkgoT().TempDir(), "bad.yaml")
		Expect(os.WriteFile(file,
			[]byte("smoothing:\n  iteration_limit: 0\n"), 0o644)).To(Succeed())

		_, _, err := run("smooth", "--config", file)

		Expect(err).To(MatchError(ContainSubstring("smoothing.iteration_limit")))
	})

	It("should refuse an unknown sink", func() {
		_, _, err := run("trace", "--sink", "s3")

		Expect(err).To(MatchError(ContainSubstring("reporting.sink")))
	})
})
