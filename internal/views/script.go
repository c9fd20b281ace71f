package views

// clientScript keeps the page in sync with the server. It applies mount,
// update, patch and style messages, re-adds copy buttons after each content
// change and reports scroll geometry so patches can restore the offset.
const clientScript = `(function () {
  var root = document.currentScript.parentNode.querySelector("main");
  var styleEl = document.getElementById("mdpreview-style");
  var surface = root;
  var scrollEl = document.scrollingElement || document.documentElement;
  var socket;
  var reportTimer;

  function isolate(enabled) {
    if (enabled && !root.shadowRoot) {
      surface = root.attachShadow({ mode: "open" });
    } else if (!enabled) {
      surface = root.shadowRoot || root;
    }
  }

  function applyStyle(css) {
    if (surface !== root) {
      var inner = surface.querySelector("style[data-mdpreview]");
      if (!inner) {
        inner = document.createElement("style");
        inner.setAttribute("data-mdpreview", "");
        surface.prepend(inner);
      }
      inner.textContent = css;
    }
    styleEl.textContent = css;
  }

  function setContent(markup) {
    var inner = surface.querySelector("style[data-mdpreview]");
    surface.innerHTML = markup;
    if (inner) surface.prepend(inner);
    rehydrate();
  }

  function rehydrate() {
    surface.querySelectorAll("pre").forEach(function (pre) {
      if (pre.querySelector(".copy-button")) return;
      var button = document.createElement("button");
      button.type = "button";
      button.className = "copy-button";
      button.textContent = "Copy";
      button.addEventListener("click", function () {
        var code = pre.querySelector("code") || pre;
        navigator.clipboard.writeText(code.innerText).then(function () {
          button.textContent = "Copied";
          setTimeout(function () { button.textContent = "Copy"; }, 1200);
        });
      });
      pre.appendChild(button);
    });
  }

  function report() {
    if (!socket || socket.readyState !== 1) return;
    socket.send(JSON.stringify({
      type: "scroll",
      scrollTop: scrollEl.scrollTop,
      scrollHeight: scrollEl.scrollHeight,
      clientHeight: scrollEl.clientHeight
    }));
  }

  function scheduleReport() {
    clearTimeout(reportTimer);
    reportTimer = setTimeout(report, 50);
  }

  function applyProps(msg) {
    if (!msg.props) return;
    if (msg.props.title) document.title = msg.props.title;
    if (msg.props.css) applyStyle(msg.props.css);
    root.setAttribute("data-theme", msg.props.themeId || "");
    setContent(msg.props.markup || "");
  }

  function handle(msg) {
    switch (msg.type) {
      case "mount":
        isolate(!!msg.isolation);
        applyProps(msg);
        break;
      case "update":
        applyProps(msg);
        break;
      case "unmount":
        setContent("");
        break;
      case "patch":
        setContent(msg.markup || "");
        scrollEl.scrollTop = Math.min(msg.scrollTop || 0,
          Math.max(0, scrollEl.scrollHeight - scrollEl.clientHeight));
        break;
      case "style":
        applyStyle(msg.css || "");
        break;
      case "diagnostic":
        setContent(msg.markup || "");
        break;
      case "rehydrate":
        rehydrate();
        break;
    }
    scheduleReport();
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    socket = new WebSocket(proto + location.host + (root.getAttribute("data-ws") || "/ws"));
    socket.onopen = report;
    socket.onmessage = function (event) {
      try { handle(JSON.parse(event.data)); } catch (e) { console.error("mdpreview:", e); }
    };
    socket.onclose = function () { setTimeout(connect, 1000); };
  }

  isolate(root.getAttribute("data-isolation") === "true");
  rehydrate();
  window.addEventListener("scroll", scheduleReport, { passive: true });
  window.addEventListener("resize", scheduleReport);
  connect();
})();`
