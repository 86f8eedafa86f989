package preview

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"ai-app-builder/internal/workflow"
)

type palette struct{ primary, secondary string }

var palettes = map[string]palette{
	"blue":   {"#3b82f6", "#2563eb"},
	"green":  {"#10b981", "#059669"},
	"purple": {"#8b5cf6", "#7c3aed"},
	"red":    {"#ef4444", "#dc2626"},
}

type renderData struct {
	Name        string
	Description string
	LoginDomain string
	Features    string
	Color       string
	Primary     string
	Secondary   string
	Config      Config
}

var jsxReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"{", "&#123;",
	"}", "&#125;",
)

// jsxText escapes s for use as JSX child text.
func jsxText(s string) string { return jsxReplacer.Replace(s) }

// jsLiteral encodes v as a JavaScript literal. encoding/json escapes <, >
// and & so the result cannot close the surrounding script element.
func jsLiteral(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// loginDomain reduces a name to lowercase letters and digits.
func loginDomain(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "app"
	}
	return b.String()
}

var previewTemplates = template.Must(template.New("preview").
	Delims("<%", "%>").
	Funcs(template.FuncMap{"jsx": jsxText}).
	Parse(shellTemplate + hooksTemplate + calculatorTemplate + ecommerceTemplate +
		socialTemplate + dashboardTemplate + blogTemplate + portfolioTemplate + defaultTemplate))

// Render produces a self-contained HTML document previewing the project.
// Identical inputs give identical output.
func Render(p *workflow.Project, cfg Config) (string, error) {
	pal, ok := palettes[cfg.ColorScheme]
	if !ok {
		cfg.ColorScheme = "blue"
		pal = palettes["blue"]
	}
	if cfg.AppType == "" {
		cfg.AppType = AppDefault
	}
	features := cfg.Features
	if features == nil {
		features = []string{}
	}
	featuresJS, err := jsLiteral(features)
	if err != nil {
		return "", fmt.Errorf("failed to encode preview features: %w", err)
	}

	data := renderData{
		Name:        p.Name,
		Description: p.Description,
		LoginDomain: loginDomain(p.Name),
		Features:    featuresJS,
		Color:       cfg.ColorScheme,
		Primary:     pal.primary,
		Secondary:   pal.secondary,
		Config:      cfg,
	}

	var b strings.Builder
	if err := previewTemplates.ExecuteTemplate(&b, "shell", data); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return b.String(), nil
}

const shellTemplate = `<%define "shell"%><!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title><%html .Name%></title>
    <script src="https://cdn.tailwindcss.com"></script>
    <script src="https://unpkg.com/react@18/umd/react.development.js"></script>
    <script src="https://unpkg.com/react-dom@18/umd/react-dom.development.js"></script>
    <script src="https://unpkg.com/@babel/standalone/babel.min.js"></script>
    <style>
        .gradient-bg { background: linear-gradient(135deg, var(--primary-color) 0%, var(--secondary-color) 100%); }
        .glass { backdrop-filter: blur(10px); background: rgba(255, 255, 255, 0.1); }
        .animate-float { animation: float 6s ease-in-out infinite; }
        @keyframes float { 0%, 100% { transform: translateY(0px); } 50% { transform: translateY(-10px); } }
        :root {
            --primary-color: <%.Primary%>;
            --secondary-color: <%.Secondary%>;
        }
    </style>
</head>
<body>
    <div id="root"></div>
    <script type="text/babel">
<%template "hooks" .%>
<%if eq .Config.AppType "calculator"%><%template "calculator" .%><%else if eq .Config.AppType "ecommerce"%><%template "ecommerce" .%><%else if eq .Config.AppType "social"%><%template "social" .%><%else if eq .Config.AppType "dashboard"%><%template "dashboard" .%><%else if eq .Config.AppType "blog"%><%template "blog" .%><%else if eq .Config.AppType "portfolio"%><%template "portfolio" .%><%else%><%template "default" .%><%end%>
        ReactDOM.render(<App />, document.getElementById('root'));
    </script>
</body>
</html>
<%end%>`

const hooksTemplate = `<%define "hooks"%>
        const { useState, useEffect } = React;

        const useAuth = () => {
          const [user, setUser] = useState(<%if .Config.HasAuth%>null<%else%>{ id: 1, name: "Demo User" }<%end%>);
          const [loading, setLoading] = useState(false);

          const login = async (email, password) => {
            setLoading(true);
            await new Promise(resolve => setTimeout(resolve, 1000));
            setUser({ id: 1, name: email.split('@')[0], email });
            setLoading(false);
          };

          return { user, login, logout: () => setUser(null), loading };
        };

        const useRealTime = () => {
          const [data, setData] = useState([]);

          useEffect(() => {
            if (!<%.Config.HasRealtime%>) return;
            const interval = setInterval(() => {
              setData(prev => [...prev.slice(-4), {
                id: Date.now(),
                value: Math.floor(Math.random() * 100),
                timestamp: new Date().toLocaleTimeString()
              }]);
            }, 3000);
            return () => clearInterval(interval);
          }, []);

          return data;
        };
<%end%>`

const calculatorTemplate = `<%define "calculator"%>
        function App() {
          const [display, setDisplay] = useState('0');
          const [previousValue, setPreviousValue] = useState(null);
          const [operation, setOperation] = useState(null);
          const [waitingForOperand, setWaitingForOperand] = useState(false);
          const [history, setHistory] = useState([]);

          const calculate = (a, b, op) => {
            switch (op) {
              case '+': return a + b;
              case '-': return a - b;
              case '×': return a * b;
              case '÷': return a / b;
              default: return b;
            }
          };

          const inputNumber = (num) => {
            if (waitingForOperand) {
              setDisplay(String(num));
              setWaitingForOperand(false);
            } else {
              setDisplay(display === '0' ? String(num) : display + num);
            }
          };

          const inputOperation = (next) => {
            const value = parseFloat(display);
            if (previousValue === null) {
              setPreviousValue(value);
            } else if (operation) {
              const current = previousValue || 0;
              const result = calculate(current, value, operation);
              setDisplay(String(result));
              setPreviousValue(result);
              setHistory(prev => [...prev, current + ' ' + operation + ' ' + value + ' = ' + result]);
            }
            setWaitingForOperand(true);
            setOperation(next);
          };

          const clear = () => {
            setDisplay('0');
            setPreviousValue(null);
            setOperation(null);
            setWaitingForOperand(false);
          };

          const Button = ({ onClick, className = '', children }) => (
            <button onClick={onClick} className={'h-16 text-xl font-semibold rounded-lg transition-all duration-200 hover:scale-105 active:scale-95 ' + className}>
              {children}
            </button>
          );
          const digit = 'bg-gray-200 hover:bg-gray-300 text-gray-800';
          const op = 'bg-orange-500 hover:bg-orange-600 text-white';

          return (
            <div className="min-h-screen bg-gradient-to-br from-gray-900 to-gray-800 flex items-center justify-center p-4">
              <div className="bg-white rounded-2xl shadow-2xl p-6 w-full max-w-md">
                <div className="mb-6">
                  <h1 className="text-2xl font-bold text-center text-gray-800 mb-2"><%jsx .Name%></h1>
                  <div className="bg-gray-100 rounded-lg p-4 text-right">
                    <div className="text-3xl font-mono text-gray-800 break-all">{display}</div>
                  </div>
                </div>
                <div className="grid grid-cols-4 gap-3 mb-4">
                  <Button onClick={clear} className="col-span-2 bg-red-500 hover:bg-red-600 text-white">Clear</Button>
                  <Button onClick={() => inputOperation('÷')} className={op}>÷</Button>
                  <Button onClick={() => inputOperation('×')} className={op}>×</Button>
                  {[7, 8, 9].map(n => <Button key={n} onClick={() => inputNumber(n)} className={digit}>{n}</Button>)}
                  <Button onClick={() => inputOperation('-')} className={op}>-</Button>
                  {[4, 5, 6].map(n => <Button key={n} onClick={() => inputNumber(n)} className={digit}>{n}</Button>)}
                  <Button onClick={() => inputOperation('+')} className={op}>+</Button>
                  {[1, 2, 3].map(n => <Button key={n} onClick={() => inputNumber(n)} className={digit}>{n}</Button>)}
                  <Button onClick={() => inputOperation('=')} className="row-span-2 bg-blue-500 hover:bg-blue-600 text-white">=</Button>
                  <Button onClick={() => inputNumber(0)} className={'col-span-2 ' + digit}>0</Button>
                  <Button onClick={() => setDisplay(display.includes('.') ? display : display + '.')} className={digit}>.</Button>
                </div>
                {history.length > 0 && (
                  <div className="bg-gray-50 rounded-lg p-3 max-h-32 overflow-y-auto">
                    <h3 className="text-sm font-semibold text-gray-600 mb-2">History</h3>
                    {history.slice(-3).map((calc, index) => (
                      <div key={index} className="text-xs text-gray-500 font-mono">{calc}</div>
                    ))}
                  </div>
                )}
              </div>
            </div>
          );
        }
<%end%>`

const ecommerceTemplate = `<%define "ecommerce"%>
        function App() {
          const { user, login } = useAuth();
          const [products] = useState([
            { id: 1, name: 'Premium Headphones', price: 299, image: '🎧', rating: 4.8 },
            { id: 2, name: 'Smart Watch', price: 399, image: '⌚', rating: 4.6 },
            { id: 3, name: 'Wireless Speaker', price: 199, image: '🔊', rating: 4.9 },
            { id: 4, name: 'Gaming Mouse', price: 79, image: '🖱️', rating: 4.7 }
          ]);
          const [cart, setCart] = useState([]);
          const addToCart = (product) => setCart(prev => [...prev, product]);

          return (
            <div className="min-h-screen bg-gray-50">
              <nav className="bg-white shadow-sm border-b">
                <div className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
                  <div className="flex justify-between items-center h-16">
                    <h1 className="text-xl font-bold text-<%.Color%>-600"><%jsx .Name%></h1>
                    <div className="flex items-center space-x-4">
                      <div className="relative">
                        <span className="text-2xl">🛒</span>
                        {cart.length > 0 && (
                          <span className="absolute -top-2 -right-2 bg-red-500 text-white text-xs rounded-full h-5 w-5 flex items-center justify-center">{cart.length}</span>
                        )}
                      </div><%if .Config.HasAuth%>
                      {user ? (
                        <span className="text-sm">Hi, {user.name}!</span>
                      ) : (
                        <button onClick={() => login('demo@shop.com', 'password')} className="bg-<%.Color%>-500 text-white px-4 py-2 rounded">Sign In</button>
                      )}<%end%>
                    </div>
                  </div>
                </div>
              </nav>
              <main className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8 py-8">
                <div className="text-center mb-12">
                  <h2 className="text-4xl font-bold text-gray-900 mb-4">Featured Products</h2>
                  <p className="text-gray-600">Discover our premium collection</p>
                </div>
                <div className="grid grid-cols-1 md:grid-cols-2 lg:grid-cols-4 gap-6">
                  {products.map(product => (
                    <div key={product.id} className="bg-white rounded-lg shadow-md overflow-hidden hover:shadow-lg transition-shadow">
                      <div className="p-6 text-center">
                        <div className="text-6xl mb-4">{product.image}</div>
                        <h3 className="font-semibold text-lg mb-2">{product.name}</h3>
                        <div className="flex items-center justify-center mb-2">
                          <span className="text-yellow-400">{'★'.repeat(Math.floor(product.rating))}</span>
                          <span className="text-gray-400 text-sm ml-1">({product.rating})</span>
                        </div>
                        <p className="text-2xl font-bold text-<%.Color%>-600 mb-4">${product.price}</p>
                        <button onClick={() => addToCart(product)} className="w-full bg-<%.Color%>-500 hover:bg-<%.Color%>-600 text-white py-2 rounded-lg transition-colors">
                          Add to Cart
                        </button>
                      </div>
                    </div>
                  ))}
                </div>
                {cart.length > 0 && (
                  <div className="mt-12 bg-white rounded-lg shadow-md p-6">
                    <h3 className="text-xl font-bold mb-4">Shopping Cart ({cart.length} items)</h3>
                    <div className="space-y-2">
                      {cart.map((item, index) => (
                        <div key={index} className="flex justify-between items-center py-2 border-b">
                          <span>{item.name}</span>
                          <span className="font-semibold">${item.price}</span>
                        </div>
                      ))}
                      <div className="flex justify-between items-center pt-4 text-xl font-bold">
                        <span>Total:</span>
                        <span>${cart.reduce((sum, item) => sum + item.price, 0)}</span>
                      </div>
                    </div>
                  </div>
                )}
              </main>
            </div>
          );
        }
<%end%>`

const socialTemplate = `<%define "social"%>
        function App() {
          const { user, login } = useAuth();
          const [posts, setPosts] = useState([
            { id: 1, author: 'Alice Johnson', content: 'Just launched my new project! 🚀', likes: 24, time: '2h ago' },
            { id: 2, author: 'Bob Smith', content: 'Beautiful sunset today 🌅', likes: 18, time: '4h ago' },
            { id: 3, author: 'Carol Davis', content: 'Working on some exciting AI features!', likes: 31, time: '6h ago' }
          ]);
          const likePost = (id) => {
            setPosts(prev => prev.map(post => post.id === id ? { ...post, likes: post.likes + 1 } : post));
          };

          if (!user) {
            return (
              <div className="min-h-screen bg-gray-100 flex items-center justify-center">
                <div className="bg-white p-8 rounded-lg shadow-md w-full max-w-md text-center">
                  <h2 className="text-2xl font-bold mb-6"><%jsx .Name%></h2>
                  <p className="text-gray-600 mb-6">Connect with friends and share your moments</p>
                  <button onClick={() => login('demo@social.com', 'password')} className="w-full bg-<%.Color%>-500 hover:bg-<%.Color%>-600 text-white py-3 rounded-lg">
                    Join <%jsx .Name%>
                  </button>
                </div>
              </div>
            );
          }

          return (
            <div className="min-h-screen bg-gray-100">
              <nav className="bg-white shadow-sm border-b">
                <div className="max-w-4xl mx-auto px-4 sm:px-6 lg:px-8">
                  <div className="flex justify-between items-center h-16">
                    <h1 className="text-xl font-bold text-<%.Color%>-600"><%jsx .Name%></h1>
                    <div className="flex items-center space-x-4">
                      <span className="text-sm">Welcome, {user.name}!</span>
                      <div className="w-8 h-8 bg-<%.Color%>-500 rounded-full flex items-center justify-center text-white text-sm">{user.name.charAt(0)}</div>
                    </div>
                  </div>
                </div>
              </nav>
              <main className="max-w-4xl mx-auto px-4 sm:px-6 lg:px-8 py-8">
                <div className="bg-white rounded-lg shadow-md p-6 mb-6">
                  <textarea placeholder="What's on your mind?" className="w-full p-3 border border-gray-300 rounded-lg resize-none" rows="3" />
                  <div className="flex justify-between items-center mt-4">
                    <div className="flex space-x-4 text-gray-500">
                      <button className="hover:text-<%.Color%>-500">📷 Photo</button>
                      <button className="hover:text-<%.Color%>-500">📍 Location</button>
                      <button className="hover:text-<%.Color%>-500">😊 Feeling</button>
                    </div>
                    <button className="bg-<%.Color%>-500 hover:bg-<%.Color%>-600 text-white px-6 py-2 rounded-lg">Post</button>
                  </div>
                </div>
                <div className="space-y-6">
                  {posts.map(post => (
                    <div key={post.id} className="bg-white rounded-lg shadow-md p-6">
                      <div className="flex items-center mb-4">
                        <div className="w-10 h-10 bg-<%.Color%>-500 rounded-full flex items-center justify-center text-white mr-3">{post.author.charAt(0)}</div>
                        <div>
                          <h3 className="font-semibold">{post.author}</h3>
                          <p className="text-sm text-gray-500">{post.time}</p>
                        </div>
                      </div>
                      <p className="text-gray-800 mb-4">{post.content}</p>
                      <div className="flex items-center space-x-6 text-gray-500">
                        <button onClick={() => likePost(post.id)} className="flex items-center space-x-2 hover:text-red-500">
                          <span>❤️</span><span>{post.likes}</span>
                        </button>
                        <button className="flex items-center space-x-2 hover:text-<%.Color%>-500"><span>💬</span><span>Comment</span></button>
                        <button className="flex items-center space-x-2 hover:text-<%.Color%>-500"><span>🔄</span><span>Share</span></button>
                      </div>
                    </div>
                  ))}
                </div>
              </main>
            </div>
          );
        }
<%end%>`

const dashboardTemplate = `<%define "dashboard"%>
        function App() {
          const { user, login } = useAuth();
          const realTimeData = useRealTime();
          const [stats, setStats] = useState({});

          useEffect(() => {
            setStats({
              users: Math.floor(Math.random() * 10000) + 5000,
              revenue: Math.floor(Math.random() * 100000) + 50000,
              orders: Math.floor(Math.random() * 1000) + 500,
              growth: Math.floor(Math.random() * 20) + 5
            });
          }, []);

          if (!user) {
            return (
              <div className="min-h-screen bg-gray-100 flex items-center justify-center">
                <div className="bg-white p-8 rounded-lg shadow-md w-full max-w-md">
                  <h2 className="text-2xl font-bold text-center mb-6">Admin Login</h2>
                  <button onClick={() => login('admin@<%.LoginDomain%>.com', 'admin')} className="w-full bg-<%.Color%>-500 hover:bg-<%.Color%>-600 text-white py-3 rounded-lg">
                    Sign In as Admin
                  </button>
                </div>
              </div>
            );
          }

          const cards = [
            { icon: '👥', label: 'Total Users', value: stats.users?.toLocaleString() },
            { icon: '💰', label: 'Revenue', value: '$' + (stats.revenue?.toLocaleString() ?? '') },
            { icon: '📦', label: 'Orders', value: stats.orders?.toLocaleString() },
            { icon: '📈', label: 'Growth', value: stats.growth + '%' }
          ];

          return (
            <div className="min-h-screen bg-gray-100">
              <nav className="bg-white shadow-sm">
                <div className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
                  <div className="flex justify-between items-center h-16">
                    <h1 className="text-xl font-bold"><%jsx .Name%> Dashboard</h1>
                    <span className="text-sm text-gray-600">Welcome, {user.name}</span>
                  </div>
                </div>
              </nav>
              <main className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8 py-8">
                <div className="grid grid-cols-1 md:grid-cols-2 lg:grid-cols-4 gap-6 mb-8">
                  {cards.map(card => (
                    <div key={card.label} className="bg-white p-6 rounded-lg shadow">
                      <div className="flex items-center">
                        <div className="text-3xl mr-4">{card.icon}</div>
                        <div>
                          <p className="text-sm text-gray-600">{card.label}</p>
                          <p className="text-2xl font-bold">{card.value}</p>
                        </div>
                      </div>
                    </div>
                  ))}
                </div><%if .Config.HasRealtime%>
                <div className="bg-white rounded-lg shadow p-6 mb-8">
                  <h3 className="text-lg font-semibold mb-4 flex items-center">
                    <span className="w-3 h-3 bg-green-500 rounded-full mr-2 animate-pulse"></span>
                    Real-time Activity
                  </h3>
                  <div className="space-y-2">
                    {realTimeData.slice(-5).map(item => (
                      <div key={item.id} className="flex justify-between items-center p-2 bg-gray-50 rounded">
                        <span>Activity detected</span>
                        <span className="text-sm text-gray-500">{item.timestamp}</span>
                      </div>
                    ))}
                  </div>
                </div><%end%>
                <div className="grid grid-cols-1 lg:grid-cols-2 gap-6">
                  <div className="bg-white rounded-lg shadow p-6">
                    <h3 className="text-lg font-semibold mb-4">Recent Activity</h3>
                    <div className="space-y-3">
                      {['New user registered', 'Order completed', 'Payment received', 'Report generated'].map((activity, index) => (
                        <div key={index} className="flex items-center p-3 bg-gray-50 rounded">
                          <div className="w-2 h-2 bg-<%.Color%>-500 rounded-full mr-3"></div>
                          <span>{activity}</span>
                          <span className="ml-auto text-sm text-gray-500">{(index + 1) * 7} min ago</span>
                        </div>
                      ))}
                    </div>
                  </div>
                  <div className="bg-white rounded-lg shadow p-6">
                    <h3 className="text-lg font-semibold mb-4">Performance</h3>
                    <div className="space-y-4">
                      {[['Server Load', 23, 'bg-green-500'], ['Memory Usage', 67, 'bg-yellow-500']].map(([label, pct, bar]) => (
                        <div key={label}>
                          <div className="flex justify-between text-sm mb-1"><span>{label}</span><span>{pct}%</span></div>
                          <div className="w-full bg-gray-200 rounded-full h-2">
                            <div className={bar + ' h-2 rounded-full'} style={{ width: pct + '%' }}></div>
                          </div>
                        </div>
                      ))}
                    </div>
                  </div>
                </div>
              </main>
            </div>
          );
        }
<%end%>`

const blogTemplate = `<%define "blog"%>
        function App() {
          const [posts] = useState([
            { id: 1, title: 'Getting Started with AI Development', excerpt: 'Learn the fundamentals of building AI-powered applications...', author: 'Tech Writer', date: '2024-01-15', readTime: '5 min read' },
            { id: 2, title: 'The Future of Web Development', excerpt: 'Exploring emerging trends and technologies shaping the web...', author: 'Web Expert', date: '2024-01-12', readTime: '8 min read' }
          ]);

          return (
            <div className="min-h-screen bg-gray-50">
              <header className="bg-white shadow-sm">
                <div className="max-w-4xl mx-auto px-4 sm:px-6 lg:px-8 py-6">
                  <h1 className="text-3xl font-bold text-<%.Color%>-600"><%jsx .Name%></h1>
                  <p className="text-gray-600 mt-2">Insights, tutorials, and thoughts on technology</p>
                </div>
              </header>
              <main className="max-w-4xl mx-auto px-4 sm:px-6 lg:px-8 py-12">
                <div className="space-y-8">
                  {posts.map(post => (
                    <article key={post.id} className="bg-white rounded-lg shadow-md overflow-hidden">
                      <div className="p-6">
                        <h2 className="text-2xl font-bold text-gray-900 mb-3 hover:text-<%.Color%>-600 cursor-pointer">{post.title}</h2>
                        <p className="text-gray-600 mb-4">{post.excerpt}</p>
                        <div className="flex items-center justify-between text-sm text-gray-500">
                          <div className="flex items-center space-x-4">
                            <span>By {post.author}</span>
                            <span>{post.date}</span>
                            <span>{post.readTime}</span>
                          </div>
                          <button className="text-<%.Color%>-600 hover:text-<%.Color%>-700">Read More →</button>
                        </div>
                      </div>
                    </article>
                  ))}
                </div>
              </main>
            </div>
          );
        }
<%end%>`

const portfolioTemplate = `<%define "portfolio"%>
        function App() {
          const [projects] = useState([
            { id: 1, title: 'E-commerce Platform', tech: 'React, Node.js', image: '🛒' },
            { id: 2, title: 'Mobile App Design', tech: 'Figma, React Native', image: '📱' },
            { id: 3, title: 'Data Visualization', tech: 'D3.js, Python', image: '📊' }
          ]);

          return (
            <div className="min-h-screen bg-gray-900 text-white">
              <header className="py-20 text-center">
                <div className="max-w-4xl mx-auto px-4">
                  <h1 className="text-5xl font-bold mb-4"><%jsx .Name%></h1>
                  <p className="text-xl text-gray-300 mb-8">Full-Stack Developer &amp; Designer</p>
                  <button className="bg-<%.Color%>-500 hover:bg-<%.Color%>-600 text-white px-8 py-3 rounded-lg">View My Work</button>
                </div>
              </header>
              <section className="py-20 bg-gray-800">
                <div className="max-w-6xl mx-auto px-4">
                  <h2 className="text-3xl font-bold text-center mb-12">Featured Projects</h2>
                  <div className="grid grid-cols-1 md:grid-cols-3 gap-8">
                    {projects.map(project => (
                      <div key={project.id} className="bg-gray-700 rounded-lg overflow-hidden hover:transform hover:scale-105 transition-transform">
                        <div className="p-6 text-center">
                          <div className="text-6xl mb-4">{project.image}</div>
                          <h3 className="text-xl font-semibold mb-2">{project.title}</h3>
                          <p className="text-gray-300 text-sm">{project.tech}</p>
                        </div>
                      </div>
                    ))}
                  </div>
                </div>
              </section>
            </div>
          );
        }
<%end%>`

const defaultTemplate = `<%define "default"%>
        function App() {
          const { user, login } = useAuth();
          const [darkMode, setDarkMode] = useState(false);
          const features = <%.Features%>;

          return (
            <div className={'min-h-screen transition-colors ' + (darkMode ? 'dark bg-gray-900 text-white' : 'bg-gray-50 text-gray-900')}>
              <header className="bg-white dark:bg-gray-800 shadow-sm border-b">
                <div className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8">
                  <div className="flex justify-between items-center h-16">
                    <h1 className="text-xl font-bold text-<%.Color%>-600"><%jsx .Name%></h1>
                    <div className="flex items-center space-x-4">
                      <button onClick={() => setDarkMode(!darkMode)} className="p-2 rounded-lg bg-gray-100 dark:bg-gray-700 hover:bg-gray-200 dark:hover:bg-gray-600">
                        {darkMode ? '☀️' : '🌙'}
                      </button><%if .Config.HasAuth%>
                      {user ? (
                        <span className="text-sm">Hi, {user.name}!</span>
                      ) : (
                        <button onClick={() => login('demo@app.com', 'password')} className="bg-<%.Color%>-500 text-white px-4 py-2 rounded">Sign In</button>
                      )}<%end%>
                    </div>
                  </div>
                </div>
              </header>
              <main className="max-w-7xl mx-auto px-4 sm:px-6 lg:px-8 py-12">
                <div className="text-center mb-12">
                  <h2 className="text-4xl font-bold mb-4">Welcome to <%jsx .Name%></h2>
                  <p className="text-xl text-gray-600 dark:text-gray-300 max-w-2xl mx-auto"><%jsx .Description%></p>
                </div>
                <div className="grid grid-cols-1 md:grid-cols-3 gap-8 mb-12">
                  {features.map((feature, index) => (
                    <div key={index} className="bg-white dark:bg-gray-800 p-6 rounded-lg shadow-md text-center">
                      <div className="text-4xl mb-4">✨</div>
                      <h3 className="text-lg font-semibold mb-2">{feature}</h3>
                      <p className="text-gray-600 dark:text-gray-300">AI-generated feature ready to use</p>
                    </div>
                  ))}
                </div>
                <div className="bg-gradient-to-r from-<%.Color%>-500 to-<%.Color%>-600 rounded-lg p-8 text-white text-center">
                  <h3 className="text-2xl font-bold mb-4">🚀 AI-Generated Application</h3>
                  <p className="mb-6">This application was built by 6 AI agents working together</p>
                  <div className="grid grid-cols-2 md:grid-cols-3 gap-4 text-sm">
                    <div>🏗️ Architect</div>
                    <div>🎨 UI/UX Designer</div>
                    <div>⚙️ Backend Developer</div>
                    <div>💾 Database Engineer</div>
                    <div>🧪 QA Tester</div>
                    <div>🚀 DevOps Engineer</div>
                  </div>
                </div>
              </main>
            </div>
          );
        }
<%end%>`
