// Package inference guesses the frontend framework a package uses from
// its declared dependencies, so tasks can pick up the framework's
// well-known environment variable prefix (NEXT_PUBLIC_, VITE_, ...)
// without the user having to list every one by hand in `env`.
package inference

import "github.com/monotask/mono/internal/fs"

// Framework identifies a frontend framework inference target.
type Framework struct {
	Slug            string
	EnvMatcher      string
	DependencyMatch matcher
}

type matcher struct {
	strategy     matchStrategy
	dependencies []string
}

type matchStrategy int

const (
	all matchStrategy = iota + 1
	some
)

var frameworks = []Framework{
	{
		Slug:       "blitzjs",
		EnvMatcher: "^NEXT_PUBLIC_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"blitz"},
		},
	},
	{
		Slug:       "nextjs",
		EnvMatcher: "^NEXT_PUBLIC_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"next"},
		},
	},
	{
		Slug:       "gatsby",
		EnvMatcher: "^GATSBY_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"gatsby"},
		},
	},
	{
		Slug:       "astro",
		EnvMatcher: "^PUBLIC_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"astro"},
		},
	},
	{
		Slug:       "solidstart",
		EnvMatcher: "^VITE_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"solid-js", "solid-start"},
		},
	},
	{
		Slug:       "vue",
		EnvMatcher: "^VUE_APP_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"@vue/cli-service"},
		},
	},
	{
		Slug:       "sveltekit",
		EnvMatcher: "^VITE_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"@sveltejs/kit"},
		},
	},
	{
		Slug:       "create-react-app",
		EnvMatcher: "^REACT_APP_",
		DependencyMatch: matcher{
			strategy:     some,
			dependencies: []string{"react-scripts", "react-dev-utils"},
		},
	},
	{
		Slug:       "nuxtjs",
		EnvMatcher: "^NUXT_ENV_",
		DependencyMatch: matcher{
			strategy:     some,
			dependencies: []string{"nuxt", "nuxt-edge", "nuxt3", "nuxt3-edge"},
		},
	},
	{
		Slug:       "redwoodjs",
		EnvMatcher: "^REDWOOD_ENV_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"@redwoodjs/core"},
		},
	},
	{
		Slug:       "vite",
		EnvMatcher: "^VITE_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"vite"},
		},
	},
	{
		Slug:       "sanity",
		EnvMatcher: "^SANITY_STUDIO_",
		DependencyMatch: matcher{
			strategy:     all,
			dependencies: []string{"@sanity/cli"},
		},
	},
}

func (m matcher) match(pkg *fs.PackageJSON) bool {
	deps := pkg.UnresolvedExternalDeps
	if pkg.Workspaces != nil && len(pkg.Workspaces) == 0 {
		deps = pkg.Dependencies
	}

	if m.strategy == all {
		for _, dependency := range m.dependencies {
			if _, exists := deps[dependency]; !exists {
				return false
			}
		}
		return true
	}

	for _, dependency := range m.dependencies {
		if _, exists := deps[dependency]; exists {
			return true
		}
	}
	return false
}

func (f Framework) match(pkg *fs.PackageJSON) bool {
	return f.DependencyMatch.match(pkg)
}

// InferFramework returns the first matching framework for pkg, or nil if
// none match.
func InferFramework(pkg *fs.PackageJSON) *Framework {
	if pkg == nil {
		return nil
	}
	for _, candidate := range frameworks {
		if candidate.match(pkg) {
			return &candidate
		}
	}
	return nil
}
